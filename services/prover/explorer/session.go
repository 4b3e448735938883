// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explorer

import (
	"time"

	"github.com/AleutianAI/proofgraph/services/prover/graph"
)

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StateRootSeeded
	StateLevelExpanding
	StateDraining
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRootSeeded:
		return "root_seeded"
	case StateLevelExpanding:
		return "level_expanding"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Policy bounds one exploration.
type Policy struct {
	// MaxDepth is the exclusive level limit for analysis. Nodes may be
	// created at MaxDepth but are never analyzed or expanded.
	MaxDepth int

	// MaxBatches caps how many level batches are extracted from the queue.
	MaxBatches int

	// PacingDelay is slept after each child node event. Zero disables it.
	PacingDelay time.Duration

	// MaxConcurrency limits in-flight analyses within a level. Zero means
	// the whole level runs at once.
	MaxConcurrency int
}

// DefaultPolicy returns depth 10, 20 batches and 100ms pacing.
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth:    10,
		MaxBatches:  20,
		PacingDelay: 100 * time.Millisecond,
	}
}

// Summary describes a finished (or aborted) session.
type Summary struct {
	SessionID  string        `json:"session_id"`
	Statement  string        `json:"statement"`
	State      string        `json:"state"`
	Nodes      int           `json:"nodes"`
	Analyzed   int           `json:"analyzed"`
	Elementary int           `json:"elementary"`
	Batches    int           `json:"batches"`
	MaxLevel   int           `json:"max_level"`
	Truncated  bool          `json:"truncated"`
	Duration   time.Duration `json:"duration_ns"`
}

// session is the mutable state of one Run. It is only touched by the
// goroutine executing Run; analysis workers see nodes read-only.
type session struct {
	id        string
	statement string
	policy    Policy
	store     *graph.Store
	queue     *graph.FrontierQueue
	state     State
	batches   int
	truncated bool
	started   time.Time
}

func (s *session) summary() Summary {
	sum := Summary{
		SessionID: s.id,
		Statement: s.statement,
		State:     s.state.String(),
		Nodes:     s.store.Len(),
		Batches:   s.batches,
		Truncated: s.truncated,
		Duration:  time.Since(s.started),
	}
	for _, n := range s.store.Nodes() {
		if n.Analyzed {
			sum.Analyzed++
		}
		if n.IsElementary {
			sum.Elementary++
		}
		if n.Level > sum.MaxLevel {
			sum.MaxLevel = n.Level
		}
	}
	return sum
}
