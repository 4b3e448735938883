// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/proofgraph/services/llm"
	"github.com/AleutianAI/proofgraph/services/prover/graph"
)

var tracer = otel.Tracer("proofgraph.analysis")

// Client is the analysis boundary. Backend failures and malformed replies
// are retried and finally absorbed into DegradedResult; only a blank
// statement or the caller's own cancellation surface as errors.
//
// Thread Safety: safe for concurrent use once built.
type Client struct {
	backend  llm.LLMClient
	params   llm.GenerationParams
	retry    RetryConfig
	jitter   func() float64
	limiter  *rate.Limiter
	cache    Cache
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithJitter replaces the jitter source; fn must return values in [0, 1).
func WithJitter(fn func() float64) Option {
	return func(c *Client) { c.jitter = fn }
}

// WithRateLimit throttles backend calls. rps <= 0 means unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGenerationParams overrides the sampling parameters sent to the backend.
// JSON mode is always forced on.
func WithGenerationParams(p llm.GenerationParams) Option {
	return func(c *Client) { c.params = p }
}

// NewClient builds a Client over backend.
//
// Panics if backend is nil.
func NewClient(backend llm.LLMClient, opts ...Option) *Client {
	if backend == nil {
		panic("analysis.NewClient: backend must not be nil")
	}
	temp := float32(0.3)
	c := &Client{
		backend: backend,
		params:  llm.GenerationParams{Temperature: &temp},
		retry:   DefaultRetryConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.params.JSONMode = true
	return c
}

// Analyze judges statement in the context of goal and the ancestor path.
func (c *Client) Analyze(ctx context.Context, statement, goal string, path []string) (Result, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return Result{}, ErrEmptyStatement
	}

	ctx, span := tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.Int("analysis.path_depth", len(path)),
		attribute.Int("analysis.statement_len", len(statement)),
	))
	defer span.End()
	start := time.Now()

	var key string
	if c.cache != nil {
		key = CacheKey(statement, goal, path)
		if r, ok := c.cache.Get(ctx, key); ok {
			span.SetAttributes(attribute.String("analysis.outcome", OutcomeCached))
			c.record(OutcomeCached, 0, time.Since(start))
			return c.finish(r, statement, goal), nil
		}
	}

	prompt := BuildPrompt(statement, goal, path)
	var result Result
	attempts, err := retry(ctx, c.retry, c.jitter, func(ctx context.Context, attempt int) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		raw, err := c.backend.Generate(ctx, prompt, c.params)
		if err != nil {
			c.logger.Debug("analysis call failed",
				slog.Int("attempt", attempt+1), slog.String("error", err.Error()))
			return err
		}
		r, err := ParseReply(raw)
		if err != nil {
			c.logger.Debug("analysis reply rejected",
				slog.Int("attempt", attempt+1), slog.String("error", err.Error()))
			return err
		}
		result = r
		return nil
	})
	span.SetAttributes(attribute.Int("analysis.attempts", attempts))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return Result{}, ctxErr
		}
		c.logger.Warn("analysis degraded after retries",
			slog.String("statement", statement),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()))
		span.RecordError(err)
		span.SetAttributes(attribute.String("analysis.outcome", OutcomeDegraded))
		c.record(OutcomeDegraded, attempts, time.Since(start))
		return DegradedResult(), nil
	}

	result = c.finish(result, statement, goal)
	if c.cache != nil {
		c.cache.Put(ctx, key, result)
	}
	span.SetAttributes(attribute.String("analysis.outcome", OutcomeSuccess))
	c.record(OutcomeSuccess, attempts, time.Since(start))
	return result, nil
}

// finish applies the rules every accepted result obeys: the goal is never
// elementary and at most MaxDependencies dependencies survive.
func (c *Client) finish(r Result, statement, goal string) Result {
	if r.IsElementary && graph.Normalize(statement) == graph.Normalize(goal) {
		r.IsElementary = false
	}
	if len(r.Dependencies) > MaxDependencies {
		c.logger.Warn("truncating dependencies",
			slog.String("statement", statement),
			slog.Int("returned", len(r.Dependencies)),
			slog.Int("kept", MaxDependencies))
		r.Dependencies = r.Dependencies[:MaxDependencies:MaxDependencies]
	}
	return r
}

func (c *Client) record(outcome string, attempts int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordAnalysis(outcome, attempts, d)
	}
}
