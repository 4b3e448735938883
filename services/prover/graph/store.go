// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store is the node registry for one exploration session plus the
// seen-statement set that guarantees each normalized statement maps to
// exactly one node.
type Store struct {
	nodes map[string]*ProofNode
	order []string

	// seen maps a normalized statement to the id of the node that claimed it.
	seen map[string]string

	newID func() string
	root  *ProofNode
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator replaces the uuid v4 generator. Tests use this for
// deterministic ids.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		nodes: make(map[string]*ProofNode),
		seen:  make(map[string]string),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedRoot creates the level-0 node for statement and claims its key.
func (s *Store) SeedRoot(statement string) (*ProofNode, error) {
	if s.root != nil {
		return nil, ErrRootExists
	}
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, ErrEmptyStatement
	}
	n := &ProofNode{
		ID:            s.newID(),
		Statement:     statement,
		GoalStatement: statement,
		PathToGoal:    []string{},
	}
	s.insert(n)
	s.root = n
	return n, nil
}

// AddChild creates a node for statement one level below parent, unless the
// statement is blank or its normalized form was already claimed. The second
// return value reports whether a node was created.
//
// Claiming happens here, at creation, so two siblings with the same
// statement in one level can never both be scheduled.
func (s *Store) AddChild(parent *ProofNode, statement string) (*ProofNode, bool) {
	statement = strings.TrimSpace(statement)
	if statement == "" || parent == nil {
		return nil, false
	}
	if _, taken := s.seen[Normalize(statement)]; taken {
		return nil, false
	}

	path := make([]string, 0, len(parent.PathToGoal)+1)
	path = append(path, parent.PathToGoal...)
	path = append(path, parent.Statement)

	n := &ProofNode{
		ID:            s.newID(),
		Statement:     statement,
		Level:         parent.Level + 1,
		ParentID:      parent.ID,
		GoalStatement: parent.GoalStatement,
		PathToGoal:    path,
	}
	s.insert(n)
	parent.Dependencies = append(parent.Dependencies, n.ID)
	return n, true
}

func (s *Store) insert(n *ProofNode) {
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	s.seen[Normalize(n.Statement)] = n.ID
}

// MarkAnalyzed records the analysis outcome on node id. Each node accepts
// exactly one outcome.
func (s *Store) MarkAnalyzed(id string, elementary bool, proofText string) error {
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if n.Analyzed {
		return fmt.Errorf("%w: %s", ErrAlreadyAnalyzed, id)
	}
	n.IsElementary = elementary
	n.ProofText = proofText
	n.Analyzed = true
	return nil
}

// Owns reports whether n is the node that claimed its normalized statement.
// Only owners are ever dispatched for analysis.
func (s *Store) Owns(n *ProofNode) bool {
	return n != nil && s.seen[Normalize(n.Statement)] == n.ID
}

// Root returns the seeded root, or nil.
func (s *Store) Root() *ProofNode {
	return s.root
}

// Nodes returns every node in creation order.
func (s *Store) Nodes() []*ProofNode {
	out := make([]*ProofNode, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

func (s *Store) Len() int {
	return len(s.order)
}
