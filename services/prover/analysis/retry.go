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
	"math/rand"
	"time"
)

// RetryConfig controls how Analyze retries a failed or malformed call.
type RetryConfig struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	// BaseDelay is the unit for exponential backoff and for jitter.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns 3 attempts with a 1s base.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}
}

// Backoff returns the wait after failed attempt n (0-based):
// base * 2^n plus jitter drawn from [0, base). jitter must return a value
// in [0, 1).
func Backoff(n int, base time.Duration, jitter func() float64) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << uint(n)
	if jitter != nil {
		d += time.Duration(jitter() * float64(base))
	}
	return d
}

type attemptFunc func(ctx context.Context, attempt int) error

// retry runs fn until it succeeds, attempts run out, or ctx is done. It
// returns the number of attempts made and the last error.
func retry(ctx context.Context, cfg RetryConfig, jitter func() float64, fn attemptFunc) (int, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if jitter == nil {
		jitter = rand.Float64
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt + 1, nil
		}
		if attempt == cfg.MaxAttempts-1 {
			return attempt + 1, lastErr
		}

		timer := time.NewTimer(Backoff(attempt, cfg.BaseDelay, jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, ctx.Err()
		case <-timer.C:
		}
	}
	return cfg.MaxAttempts, lastErr
}
