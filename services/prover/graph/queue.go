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

// FrontierQueue is a FIFO of nodes awaiting analysis. Nodes are pushed in
// non-decreasing level order, which is what lets PopLevel hand back one
// whole BFS level at a time.
type FrontierQueue struct {
	items []*ProofNode
	head  int
}

// NewFrontierQueue returns an empty queue.
func NewFrontierQueue() *FrontierQueue {
	return &FrontierQueue{}
}

// Push appends n to the tail.
func (q *FrontierQueue) Push(n *ProofNode) {
	q.items = append(q.items, n)
}

// PopLevel removes and returns the maximal run of nodes at the head that
// share the head node's level. It returns nil on an empty queue.
func (q *FrontierQueue) PopLevel() []*ProofNode {
	if q.Empty() {
		return nil
	}
	level := q.items[q.head].Level
	end := q.head
	for end < len(q.items) && q.items[end].Level == level {
		end++
	}
	batch := make([]*ProofNode, end-q.head)
	copy(batch, q.items[q.head:end])
	for i := q.head; i < end; i++ {
		q.items[i] = nil
	}
	q.head = end
	q.compact()
	return batch
}

// compact drops the consumed prefix once it dominates the backing array.
func (q *FrontierQueue) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}

func (q *FrontierQueue) Len() int {
	return len(q.items) - q.head
}

func (q *FrontierQueue) Empty() bool {
	return q.Len() == 0
}
