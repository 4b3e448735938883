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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32Ptr(v float32) *float32 { return &v }
func intPtr(v int) *int             { return &v }

// =============================================================================
// Factory
// =============================================================================

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Options{Backend: "skynet"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestNew_MissingAPIKeys(t *testing.T) {
	for _, backend := range []string{"openai", "anthropic", "claude", "gemini"} {
		t.Run(backend, func(t *testing.T) {
			_, err := New(context.Background(), Options{Backend: backend})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingAPIKey))
		})
	}
}

func TestNew_OllamaRequiresBaseURL(t *testing.T) {
	_, err := New(context.Background(), Options{Backend: "ollama"})
	assert.Error(t, err)
}

func TestNew_BuildsEachBackend(t *testing.T) {
	c, err := New(context.Background(), Options{Backend: "OpenAI", APIKey: "sk"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = New(context.Background(), Options{Backend: "ollama", BaseURL: "http://localhost:11434/"})
	require.NoError(t, err)
	require.IsType(t, &OllamaClient{}, c)
	assert.Equal(t, "http://localhost:11434", c.(*OllamaClient).baseURL)

	c, err = New(context.Background(), Options{Backend: "claude", APIKey: "sk-ant"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)
}

// =============================================================================
// Ollama
// =============================================================================

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Model: "m", Response: `{"ok":true}`, Done: true})
	}))
	defer srv.Close()

	c, err := NewOllamaClient(Options{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "prove it", GenerationParams{
		Temperature: float32Ptr(0.3),
		MaxTokens:   intPtr(256),
		JSONMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "prove it", got.Prompt)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.3, got.Options["temperature"], 1e-6)
	assert.EqualValues(t, 256, got.Options["num_predict"])
}

func TestOllamaClient_ZeroMaxTokensLeavesDefault(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: `{}`, Done: true})
	}))
	defer srv.Close()

	c, err := NewOllamaClient(Options{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p", GenerationParams{MaxTokens: intPtr(0)})
	require.NoError(t, err)
	assert.NotContains(t, got.Options, "num_predict")
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'x' not found"}`))
	}))
	defer srv.Close()

	c, err := NewOllamaClient(Options{BaseURL: srv.URL, Model: "x"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull x")
}

func TestOllamaClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewOllamaClient(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

// =============================================================================
// Anthropic
// =============================================================================

func TestAnthropicClient_Generate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Type: "message",
			Role: "assistant",
			Content: []anthropicContent{
				{Type: "text", Text: `{"is_elementary":`},
				{Type: "text", Text: `true}`},
			},
		})
	}))
	defer srv.Close()

	c, err := NewAnthropicClient(Options{APIKey: "sk-ant", BaseURL: srv.URL, Model: "claude-test"})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "prompt", GenerationParams{JSONMode: true, MaxTokens: intPtr(512)})
	require.NoError(t, err)
	assert.Equal(t, `{"is_elementary":true}`, out)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	assert.NotEmpty(t, got.System)
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Error: &anthropicError{Type: "overloaded_error", Message: "busy"},
		})
	}))
	defer srv.Close()

	c, err := NewAnthropicClient(Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "prompt", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}

// =============================================================================
// OpenAI
// =============================================================================

func TestOpenAIClient_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"dependencies\":[]}"}}]
		}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Options{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test"})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "prompt", GenerationParams{JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, `{"dependencies":[]}`, out)
	assert.Equal(t, "gpt-test", got["model"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok, "response_format should be sent in JSON mode")
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Options{APIKey: "sk", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "prompt", GenerationParams{})
	assert.Error(t, err)
}
