// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/proofgraph/pkg/config"
	"github.com/AleutianAI/proofgraph/pkg/logging"
)

// app carries state shared by subcommands once the root pre-run has loaded
// configuration.
type app struct {
	configPath string
	logLevel   string
	jsonLogs   bool

	cfg    config.Config
	logger *logging.Logger
}

func (a *app) slog() *slog.Logger {
	if a.logger == nil {
		return logging.Discard()
	}
	return a.logger.Slog()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "proofgraph",
		Short: "Break statements down into their proof dependency graphs",
		Long: `proofgraph asks an LLM which simpler statements a claim depends on,
recursively, until every branch reaches something elementary.

Examples:
  proofgraph serve --config proofgraph.yaml
  proofgraph explore "The angles of a triangle sum to 180 degrees"
  proofgraph watch "1+2=3" --url ws://localhost:8000/ws/analyze`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "emit logs as JSON")

	root.AddCommand(newServeCmd(a), newExploreCmd(a), newWatchCmd(a))
	return root
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.jsonLogs {
		cfg.Logging.JSON = true
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: cfg.Telemetry.ServiceName,
		JSON:    cfg.Logging.JSON,
		Output:  stderr,
	})
	return nil
}
