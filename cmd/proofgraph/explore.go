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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/proofgraph/pkg/ux"
	"github.com/AleutianAI/proofgraph/services/orchestrator"
	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

func newExploreCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		depth   int
		plain   bool
	)
	cmd := &cobra.Command{
		Use:   "explore STATEMENT",
		Short: "Explore a statement locally and print its dependency tree",
		Long: `Runs one exploration in-process against the configured LLM backend.

By default events are shown as they arrive, followed by the full tree.
With --json every event is printed as one JSON object per line.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := statementArg(args)
			if err != nil {
				return err
			}
			if depth > 0 {
				a.cfg.Exploration.MaxDepth = depth
			}
			if jsonOut {
				a.cfg.Exploration.PacingDelay = 0
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			svc, err := orchestrator.New(ctx, a.cfg, a.slog())
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.Screen(statement); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var onEmit func(explorer.Event)
			var tree *treeRenderer
			if jsonOut {
				enc := json.NewEncoder(out)
				onEmit = func(ev explorer.Event) { _ = enc.Encode(ev) }
			} else {
				tree = newTreeRenderer(ux.Printer{W: out, Plain: plainOutput(plain)})
				onEmit = tree.Handle
			}

			summary, err := svc.Controller().Run(ctx, statement, explorer.NewCollector(onEmit))
			if err != nil {
				return err
			}
			if tree != nil {
				tree.PrintTree()
				tree.p.Line(tree.p.Muted(fmt.Sprintf("%d nodes, %d analyzed, %d elementary, depth %d, %s",
					summary.Nodes, summary.Analyzed, summary.Elementary, summary.MaxLevel, summary.Duration.Round(1e6))))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print events as JSON lines")
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum analysis depth (overrides config)")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors and boxes")
	return cmd
}
