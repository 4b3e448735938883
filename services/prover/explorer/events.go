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
	"context"
	"fmt"
	"sync"

	"github.com/AleutianAI/proofgraph/services/prover/graph"
)

// EventType names the four messages a session produces.
type EventType string

const (
	EventNode       EventType = "node"
	EventNodeUpdate EventType = "node_update"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// CompleteMessage is the payload message of the final event of a session.
const CompleteMessage = "Proof analysis complete"

// Event is one outbound message. Data is one of NodeData, NodeUpdateData or
// MessageData.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// NodeData announces a newly created node.
type NodeData struct {
	ID            string   `json:"id"`
	Statement     string   `json:"statement"`
	Level         int      `json:"level"`
	ParentID      *string  `json:"parent_id"`
	IsElementary  bool     `json:"is_elementary"`
	GoalStatement string   `json:"goal_statement"`
	PathToGoal    []string `json:"path_to_goal"`
}

// NodeUpdateData reports the analysis outcome of a node.
type NodeUpdateData struct {
	ID            string   `json:"id"`
	IsElementary  bool     `json:"is_elementary"`
	ProofText     string   `json:"proof_text"`
	Explanation   string   `json:"explanation"`
	GoalStatement string   `json:"goal_statement"`
	PathToGoal    []string `json:"path_to_goal"`
}

// MessageData carries the text of complete and error events.
type MessageData struct {
	Message string `json:"message"`
}

func pathOf(n *graph.ProofNode) []string {
	if n.PathToGoal == nil {
		return []string{}
	}
	return n.PathToGoal
}

// NodeEvent builds the creation event for n. is_elementary is always false
// here; the verdict arrives in the node_update.
func NodeEvent(n *graph.ProofNode) Event {
	var parent *string
	if !n.IsRoot() {
		id := n.ParentID
		parent = &id
	}
	return Event{Type: EventNode, Data: NodeData{
		ID:            n.ID,
		Statement:     n.Statement,
		Level:         n.Level,
		ParentID:      parent,
		GoalStatement: n.GoalStatement,
		PathToGoal:    pathOf(n),
	}}
}

// NodeUpdateEvent builds the analysis event for an analyzed node.
func NodeUpdateEvent(n *graph.ProofNode, explanation string) Event {
	return Event{Type: EventNodeUpdate, Data: NodeUpdateData{
		ID:            n.ID,
		IsElementary:  n.IsElementary,
		ProofText:     n.ProofText,
		Explanation:   explanation,
		GoalStatement: n.GoalStatement,
		PathToGoal:    pathOf(n),
	}}
}

func CompleteEvent() Event {
	return Event{Type: EventComplete, Data: MessageData{Message: CompleteMessage}}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Data: MessageData{Message: message}}
}

// Emitter delivers events to a consumer. An error aborts the session.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// EmitError wraps a failure reported by an Emitter.
type EmitError struct {
	Type EventType
	Err  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s event: %v", e.Type, e.Err)
}

func (e *EmitError) Unwrap() error {
	return e.Err
}

// Collector is an Emitter that keeps every event in memory. It backs the
// synchronous HTTP endpoint, the CLI and tests.
type Collector struct {
	mu     sync.Mutex
	events []Event
	onEmit func(Event)
}

// NewCollector returns a Collector. onEmit, if non-nil, sees each event as it
// arrives.
func NewCollector(onEmit func(Event)) *Collector {
	return &Collector{onEmit: onEmit}
}

func (c *Collector) Emit(_ context.Context, ev Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	if c.onEmit != nil {
		c.onEmit(ev)
	}
	return nil
}

// Events returns a copy of everything emitted so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
