// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, then validates it.
//
// A missing file at an explicitly given path is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg. Backend-specific model
// and key variables follow the names used by each provider's own tooling.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PROOFGRAPH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROOFGRAPH_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("LLM_BACKEND_TYPE"); v != "" {
		cfg.LLM.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := getenv("PROOFGRAPH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	var keyVar, modelVar, urlVar string
	switch cfg.LLM.Backend {
	case "openai":
		keyVar, modelVar = "OPENAI_API_KEY", "OPENAI_MODEL"
	case "ollama":
		modelVar, urlVar = "OLLAMA_MODEL", "OLLAMA_BASE_URL"
	case "anthropic", "claude":
		keyVar, modelVar = "ANTHROPIC_API_KEY", "CLAUDE_MODEL"
	case "gemini":
		keyVar, modelVar = "GEMINI_API_KEY", "GEMINI_MODEL"
	}
	if keyVar != "" {
		if v := getenv(keyVar); v != "" {
			cfg.LLM.APIKey = v
		}
	}
	if modelVar != "" {
		if v := getenv(modelVar); v != "" {
			cfg.LLM.Model = v
		}
	}
	if urlVar != "" {
		if v := getenv(urlVar); v != "" {
			cfg.LLM.BaseURL = v
		}
	}
	return nil
}
