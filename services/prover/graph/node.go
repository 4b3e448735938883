// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the per-session proof dependency graph: nodes, the
// seen-statement set that keeps statements unique, and the level-ordered
// frontier queue the explorer drains.
//
// None of the types here are safe for concurrent mutation. A session owns
// its Store and FrontierQueue and only touches them from one goroutine.
package graph

import "errors"

var (
	// ErrAlreadyAnalyzed is returned when a node's analysis is applied twice.
	ErrAlreadyAnalyzed = errors.New("node already analyzed")

	// ErrUnknownNode is returned when an operation names a node id the store
	// never issued.
	ErrUnknownNode = errors.New("unknown node")

	// ErrRootExists is returned when a second root is seeded into a store.
	ErrRootExists = errors.New("root already seeded")

	// ErrEmptyStatement is returned when a root statement is blank.
	ErrEmptyStatement = errors.New("statement must not be empty")
)

// ProofNode is one statement in the dependency graph.
//
// ID, Statement, Level, ParentID, GoalStatement and PathToGoal are fixed at
// creation. IsElementary, ProofText and Analyzed are written once, by
// Store.MarkAnalyzed. Dependencies grows as children are created.
type ProofNode struct {
	ID        string
	Statement string
	Level     int

	// ParentID is empty for the root.
	ParentID string

	// GoalStatement is the root statement of the session.
	GoalStatement string

	// PathToGoal lists ancestor statements from the root down to the
	// parent. Empty for the root.
	PathToGoal []string

	IsElementary bool
	ProofText    string
	Analyzed     bool

	// Dependencies holds child node ids in creation order.
	Dependencies []string
}

// IsRoot reports whether n has no parent.
func (n *ProofNode) IsRoot() bool {
	return n.ParentID == ""
}
