// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads proofgraph configuration from YAML, environment
// variables and defaults, in that order of increasing precedence:
//
//	defaults < config file < environment
//
// The result is validated with go-playground/validator before use.
package config

import "time"

// Config is the root configuration document.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Exploration ExplorationConfig `yaml:"exploration"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Cache       CacheConfig       `yaml:"cache"`
	Screening   ScreeningConfig   `yaml:"screening"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls the HTTP / websocket listener.
type ServerConfig struct {
	Port    int    `yaml:"port" validate:"gte=1,lte=65535"`
	GinMode string `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`

	// AllowedOrigins feeds both the CORS middleware and the websocket
	// origin check. "*" allows everything.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`

	// WriteTimeout bounds a single websocket frame write.
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// MaxStatementBytes rejects oversized inbound statements.
	MaxStatementBytes int `yaml:"max_statement_bytes" validate:"gte=1"`
}

// LLMConfig selects and parameterises the judgment backend.
type LLMConfig struct {
	Backend     string  `yaml:"backend" validate:"required,oneof=openai ollama anthropic claude gemini"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	// MaxTokens of 0 leaves the backend's own limit in place.
	MaxTokens int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// ExplorationConfig holds the session-wide traversal bounds.
type ExplorationConfig struct {
	MaxDepth       int           `yaml:"max_depth" validate:"gte=1"`
	MaxBatches     int           `yaml:"max_batches" validate:"gte=1"`
	PacingDelay    time.Duration `yaml:"pacing_delay" validate:"gte=0"`
	MaxConcurrency int           `yaml:"max_concurrency" validate:"gte=0"`
}

// AnalysisConfig holds retry and throttling settings for judgment calls.
type AnalysisConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay         time.Duration `yaml:"base_delay" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
}

// CacheConfig enables the optional judgment cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path" validate:"required_if=Enabled true InMemory false"`
	InMemory bool          `yaml:"in_memory"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// ScreeningConfig controls the check that keeps credentials and personal
// data in statements from reaching the LLM backend.
type ScreeningConfig struct {
	Enabled       bool   `yaml:"enabled"`
	MinConfidence string `yaml:"min_confidence" validate:"omitempty,oneof=low medium high"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// TraceExporter is otlp, stdout or none. Empty picks otlp when
	// OTLPEndpoint is set and none otherwise.
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=otlp stdout none"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	ServiceName   string `yaml:"service_name"`
}

// LoggingConfig mirrors logging.Config in file form.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              8000,
			GinMode:           "release",
			AllowedOrigins:    []string{"*"},
			WriteTimeout:      10 * time.Second,
			MaxStatementBytes: 4096,
		},
		LLM: LLMConfig{
			Backend:     "openai",
			Temperature: 0.3,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Exploration: ExplorationConfig{
			MaxDepth:    10,
			MaxBatches:  20,
			PacingDelay: 100 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Screening: ScreeningConfig{
			MinConfidence: "high",
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			ServiceName:    "proofgraph",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
