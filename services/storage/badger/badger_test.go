// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpen_RejectsBadRatio(t *testing.T) {
	_, err := Open(Config{InMemory: true, GCDiscardRatio: 1.5})
	assert.Error(t, err)
}

func TestStore_PutGetInMemory(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutJSON(ctx, "k", record{Name: "a", Items: []string{"x", "y"}}, 0))

	var got record
	require.NoError(t, s.GetJSON(ctx, "k", &got))
	assert.Equal(t, record{Name: "a", Items: []string{"x", "y"}}, got)
}

func TestStore_Missing(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	var got record
	err = s.GetJSON(context.Background(), "nope", &got)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Delete(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutJSON(ctx, "k", record{Name: "a"}, 0))
	require.NoError(t, s.Delete("k"))
	assert.ErrorIs(t, s.GetJSON(ctx, "k", &record{}), ErrNotFound)
	assert.NoError(t, s.Delete("never-there"))
}

func TestStore_CancelledContext(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.PutJSON(ctx, "k", record{}, 0), context.Canceled)
	assert.ErrorIs(t, s.GetJSON(ctx, "k", &record{}), context.Canceled)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 5 * time.Millisecond

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.PutJSON(context.Background(), "k", record{Name: "kept"}, time.Hour))
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	var got record
	require.NoError(t, s.GetJSON(context.Background(), "k", &got))
	assert.Equal(t, "kept", got.Name)
}
