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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/AleutianAI/proofgraph/services/prover/graph"
	"github.com/AleutianAI/proofgraph/services/storage/badger"
)

// Cache stores analysis results across sessions.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Put(ctx context.Context, key string, r Result)
}

// CacheKey identifies one analysis request. Statements, the goal and every
// path entry are compared in normalized form.
func CacheKey(statement, goal string, path []string) string {
	h := sha256.New()
	h.Write([]byte(graph.Normalize(statement)))
	h.Write([]byte{0})
	h.Write([]byte(graph.Normalize(goal)))
	for _, p := range path {
		h.Write([]byte{0x1f})
		h.Write([]byte(graph.Normalize(p)))
	}
	return "analysis:" + hex.EncodeToString(h.Sum(nil))
}

// StoreCache is a Cache on top of the embedded badger store. Read and write
// failures are logged and treated as misses.
type StoreCache struct {
	store  *badger.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewStoreCache wraps store. A zero ttl keeps entries forever.
func NewStoreCache(store *badger.Store, ttl time.Duration, logger *slog.Logger) *StoreCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreCache{store: store, ttl: ttl, logger: logger}
}

func (c *StoreCache) Get(ctx context.Context, key string) (Result, bool) {
	var r Result
	err := c.store.GetJSON(ctx, key, &r)
	if err != nil {
		if !errors.Is(err, badger.ErrNotFound) && ctx.Err() == nil {
			c.logger.Warn("analysis cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return Result{}, false
	}
	if r.Dependencies == nil {
		r.Dependencies = []string{}
	}
	return r, true
}

func (c *StoreCache) Put(ctx context.Context, key string, r Result) {
	if r.Degraded {
		return
	}
	if err := c.store.PutJSON(ctx, key, r, c.ttl); err != nil && ctx.Err() == nil {
		c.logger.Warn("analysis cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
