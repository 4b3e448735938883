// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package explorer expands a goal statement into its proof dependency graph
// one BFS level at a time, streaming node events as the graph grows.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/proofgraph/services/prover/analysis"
	"github.com/AleutianAI/proofgraph/services/prover/graph"
)

var tracer = otel.Tracer("proofgraph.explorer")

// ErrEmptyStatement is returned by Run for a blank goal.
var ErrEmptyStatement = graph.ErrEmptyStatement

// Session outcome labels.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// Analyzer judges one statement. analysis.Client is the production
// implementation.
type Analyzer interface {
	Analyze(ctx context.Context, statement, goal string, path []string) (analysis.Result, error)
}

// Recorder observes sessions and levels. A nil Recorder is allowed.
type Recorder interface {
	RecordSession(status string, s Summary)
	RecordLevel(dispatched int)
}

// Controller runs exploration sessions. One Controller may run many
// sessions concurrently; each Run owns its own graph and queue.
type Controller struct {
	analyzer Analyzer
	policy   Policy
	logger   *slog.Logger
	recorder Recorder
	newID    func() string
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithIDGenerator sets the generator for session and node ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewController builds a Controller around analyzer.
//
// Panics if analyzer is nil.
func NewController(analyzer Analyzer, opts ...Option) *Controller {
	if analyzer == nil {
		panic("explorer.NewController: analyzer must not be nil")
	}
	c := &Controller{
		analyzer: analyzer,
		policy:   DefaultPolicy(),
		logger:   slog.Default(),
		newID:    uuid.NewString,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the bounds sessions run under.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Run explores statement to completion, emitting events in order: the root
// node, then per level the node_update of every analyzed node in dispatch
// order, each followed by node events for its new children, and finally one
// complete event.
//
// If emitter fails or ctx is cancelled, Run stops at once and returns that
// error; nothing further is emitted. The Summary is valid in every case
// except ErrEmptyStatement.
func (c *Controller) Run(ctx context.Context, statement string, emitter Emitter) (Summary, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return Summary{}, ErrEmptyStatement
	}

	s := &session{
		id:        c.newID(),
		statement: statement,
		policy:    c.policy,
		store:     graph.NewStore(graph.WithIDGenerator(c.newID)),
		queue:     graph.NewFrontierQueue(),
		state:     StateIdle,
		started:   time.Now(),
	}
	log := c.logger.With(slog.String("session_id", s.id))

	ctx, span := tracer.Start(ctx, "explorer.Run", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.Int("policy.max_depth", s.policy.MaxDepth),
		attribute.Int("policy.max_batches", s.policy.MaxBatches),
	))
	defer span.End()

	log.Info("exploration started", slog.String("statement", statement))
	err := c.run(ctx, s, emitter, log)

	status := StatusCompleted
	if err != nil {
		s.state = StateAborted
		status = StatusFailed
		var emitErr *EmitError
		if errors.As(err, &emitErr) || ctx.Err() != nil {
			status = StatusAborted
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	sum := s.summary()
	span.SetAttributes(
		attribute.String("session.status", status),
		attribute.Int("session.nodes", sum.Nodes),
		attribute.Int("session.batches", sum.Batches),
	)
	if c.recorder != nil {
		c.recorder.RecordSession(status, sum)
	}
	log.Info("exploration finished",
		slog.String("status", status),
		slog.Int("nodes", sum.Nodes),
		slog.Int("analyzed", sum.Analyzed),
		slog.Int("batches", sum.Batches),
		slog.Int("max_level", sum.MaxLevel),
		slog.Duration("duration", sum.Duration))
	return sum, err
}

func (c *Controller) run(ctx context.Context, s *session, emitter Emitter, log *slog.Logger) error {
	root, err := s.store.SeedRoot(s.statement)
	if err != nil {
		return err
	}
	s.queue.Push(root)
	s.transition(StateRootSeeded, log)
	if err := c.emit(ctx, emitter, NodeEvent(root)); err != nil {
		return err
	}

	for !s.queue.Empty() {
		if s.batches >= s.policy.MaxBatches {
			s.truncated = true
			log.Warn("batch ceiling reached, remaining frontier dropped",
				slog.Int("max_batches", s.policy.MaxBatches),
				slog.Int("pending", s.queue.Len()))
			break
		}
		level := s.queue.PopLevel()
		s.batches++
		s.transition(StateLevelExpanding, log)

		eligible := c.eligible(s, level)
		if len(eligible) == 0 {
			continue
		}
		if err := c.expandLevel(ctx, s, eligible, emitter, log); err != nil {
			return err
		}
	}

	s.transition(StateDraining, log)
	if err := c.emit(ctx, emitter, CompleteEvent()); err != nil {
		return err
	}
	s.transition(StateCompleted, log)
	return nil
}

// eligible keeps the nodes that own their statement claim and sit above
// the depth limit.
func (c *Controller) eligible(s *session, level []*graph.ProofNode) []*graph.ProofNode {
	out := level[:0:0]
	for _, n := range level {
		if n.Level < s.policy.MaxDepth && s.store.Owns(n) && !n.Analyzed {
			out = append(out, n)
		}
	}
	return out
}

type outcome struct {
	result analysis.Result
	err    error
}

// expandLevel analyzes every node in the level concurrently, waits for all
// of them, then applies the outcomes in dispatch order.
func (c *Controller) expandLevel(ctx context.Context, s *session, nodes []*graph.ProofNode, emitter Emitter, log *slog.Logger) error {
	ctx, span := tracer.Start(ctx, "explorer.expandLevel", trace.WithAttributes(
		attribute.Int("level", nodes[0].Level),
		attribute.Int("level.width", len(nodes)),
	))
	defer span.End()

	if c.recorder != nil {
		c.recorder.RecordLevel(len(nodes))
	}
	outcomes := c.dispatch(ctx, nodes)
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, n := range nodes {
		o := outcomes[i]
		if o.err != nil {
			log.Warn("analysis failed, node skipped",
				slog.String("node_id", n.ID),
				slog.String("error", o.err.Error()))
			continue
		}
		if err := c.apply(ctx, s, n, o.result, emitter); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) dispatch(ctx context.Context, nodes []*graph.ProofNode) []outcome {
	outcomes := make([]outcome, len(nodes))
	var g errgroup.Group
	if s := c.policy.MaxConcurrency; s > 0 {
		g.SetLimit(s)
	}
	for i, n := range nodes {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = outcome{err: fmt.Errorf("analysis panicked: %v", r)}
				}
			}()
			res, err := c.analyzer.Analyze(ctx, n.Statement, n.GoalStatement, n.PathToGoal)
			outcomes[i] = outcome{result: res, err: err}
			// Failures stay in the slot; returning nil keeps siblings running.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (c *Controller) apply(ctx context.Context, s *session, n *graph.ProofNode, r analysis.Result, emitter Emitter) error {
	if err := s.store.MarkAnalyzed(n.ID, r.IsElementary, r.ProofSketch); err != nil {
		return err
	}
	if err := c.emit(ctx, emitter, NodeUpdateEvent(n, r.Explanation)); err != nil {
		return err
	}
	if r.IsElementary {
		return nil
	}
	for _, dep := range r.Dependencies {
		child, ok := s.store.AddChild(n, dep)
		if !ok {
			continue
		}
		s.queue.Push(child)
		if err := c.emit(ctx, emitter, NodeEvent(child)); err != nil {
			return err
		}
		if err := c.sleep(ctx, s.policy.PacingDelay); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) emit(ctx context.Context, emitter Emitter, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := emitter.Emit(ctx, ev); err != nil {
		return &EmitError{Type: ev.Type, Err: err}
	}
	return nil
}

func (s *session) transition(to State, log *slog.Logger) {
	if s.state == to {
		return
	}
	log.Debug("session state", slog.String("from", s.state.String()), slog.String("to", to.String()))
	s.state = to
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
