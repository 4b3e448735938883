// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("proofgraph.llm")

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown LLM backend")

// ErrMissingAPIKey is returned when a hosted backend has no credentials.
var ErrMissingAPIKey = errors.New("API key is missing")

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`

	// JSONMode asks the backend to constrain output to a JSON object where
	// the provider supports it. Callers must still parse defensively.
	JSONMode bool `json:"json_mode"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Options carries backend construction settings, normally from config.LLMConfig.
type Options struct {
	Backend string
	Model   string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New constructs the client for opts.Backend.
func New(ctx context.Context, opts Options) (LLMClient, error) {
	switch strings.ToLower(opts.Backend) {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return NewOpenAIClient(opts)
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return NewOllamaClient(opts)
	case "claude", "anthropic":
		slog.Info("Using Anthropic (Claude) LLM backend")
		return NewAnthropicClient(opts)
	case "gemini":
		slog.Info("Using Gemini LLM backend")
		return NewGeminiClient(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// resolveAPIKey returns the configured key, falling back to a mounted
// container secret at /run/secrets/<secretName>.
func resolveAPIKey(configured, secretName string) string {
	if configured != "" {
		return configured
	}
	secretPath := "/run/secrets/" + secretName
	if content, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read API key from container secrets", "path", secretPath)
		return strings.TrimSpace(string(content))
	}
	return ""
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}
