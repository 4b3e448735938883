// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/proofgraph/pkg/ux"
	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

// plainOutput reports whether styling should be skipped: when forced or
// when stdout is not a terminal.
func plainOutput(forced bool) bool {
	fd := os.Stdout.Fd()
	return forced || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

type renderNode struct {
	data       explorer.NodeData
	children   []string
	analyzed   bool
	elementary bool
	proof      string
}

// treeRenderer prints events as they arrive and can draw the whole graph
// as a tree once the session is complete.
type treeRenderer struct {
	p     ux.Printer
	nodes map[string]*renderNode
	root  string
}

func newTreeRenderer(p ux.Printer) *treeRenderer {
	return &treeRenderer{p: p, nodes: map[string]*renderNode{}}
}

// Handle applies ev and prints a one-line progress note for it.
func (r *treeRenderer) Handle(ev explorer.Event) {
	switch d := ev.Data.(type) {
	case explorer.NodeData:
		n := &renderNode{data: d}
		r.nodes[d.ID] = n
		if d.ParentID == nil {
			r.root = d.ID
			r.p.Title("Goal: " + d.Statement)
		} else if parent, ok := r.nodes[*d.ParentID]; ok {
			parent.children = append(parent.children, d.ID)
		}
		r.p.Line(fmt.Sprintf("%s%s %s", strings.Repeat("  ", d.Level), r.p.Icon(ux.IconPending), d.Statement))
	case explorer.NodeUpdateData:
		n, ok := r.nodes[d.ID]
		if !ok {
			return
		}
		n.analyzed = true
		n.elementary = d.IsElementary
		n.proof = d.ProofText
		verdict := "needs dependencies"
		if d.IsElementary {
			verdict = "elementary"
		}
		r.p.Line(fmt.Sprintf("%s%s %s %s", strings.Repeat("  ", n.data.Level), r.p.Icon(ux.IconArrow),
			n.data.Statement, r.p.Muted("("+verdict+")")))
	case explorer.MessageData:
		if ev.Type == explorer.EventError {
			r.p.Error(d.Message)
		} else {
			r.p.Success(d.Message)
		}
	}
}

// Tree renders the graph with box-drawing connectors.
func (r *treeRenderer) Tree() string {
	root, ok := r.nodes[r.root]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.label(root))
	b.WriteByte('\n')
	r.writeChildren(&b, root, "")
	return b.String()
}

func (r *treeRenderer) writeChildren(b *strings.Builder, n *renderNode, prefix string) {
	for i, id := range n.children {
		child := r.nodes[id]
		last := i == len(n.children)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		b.WriteString(prefix + connector + r.label(child) + "\n")
		r.writeChildren(b, child, prefix+next)
	}
}

func (r *treeRenderer) label(n *renderNode) string {
	switch {
	case !n.analyzed:
		return r.p.Icon(ux.IconPending) + " " + n.data.Statement + " " + r.p.Muted("(unexplored)")
	case n.elementary:
		return r.p.Icon(ux.IconSuccess) + " " + n.data.Statement
	default:
		return r.p.Icon(ux.IconBullet) + " " + r.p.Bold(n.data.Statement)
	}
}

// PrintTree writes the tree inside a box.
func (r *treeRenderer) PrintTree() {
	if t := r.Tree(); t != "" {
		r.p.Box(strings.TrimRight(t, "\n"))
	}
}
