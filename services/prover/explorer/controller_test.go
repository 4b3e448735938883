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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AleutianAI/proofgraph/pkg/logging"
	"github.com/AleutianAI/proofgraph/services/prover/analysis"
)

// badger's opencensus dependency starts a stats worker from init that
// never exits.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeAnalyzer answers from a script. Unknown statements are elementary.
type fakeAnalyzer struct {
	mu       sync.Mutex
	script   map[string]analysis.Result
	delays   map[string]time.Duration
	errs     map[string]error
	panics   map[string]bool
	fallback func(statement string) analysis.Result

	calls       []string
	inflight    int
	maxInflight int
}

func newFake() *fakeAnalyzer {
	return &fakeAnalyzer{
		script: map[string]analysis.Result{},
		delays: map[string]time.Duration{},
		errs:   map[string]error{},
		panics: map[string]bool{},
	}
}

func (f *fakeAnalyzer) deps(statement string, deps ...string) *fakeAnalyzer {
	f.script[statement] = analysis.Result{
		IsProvable:   true,
		Explanation:  "explains " + statement,
		Dependencies: deps,
		ProofSketch:  "sketch " + statement,
	}
	return f
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, statement, goal string, path []string) (analysis.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, statement)
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	delay, err, boom := f.delays[statement], f.errs[statement], f.panics[statement]
	res, scripted := f.script[statement]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return analysis.Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if boom {
		panic("analyzer exploded")
	}
	if err != nil {
		return analysis.Result{}, err
	}
	if scripted {
		return res, nil
	}
	if f.fallback != nil {
		return f.fallback(statement), nil
	}
	return analysis.Result{IsProvable: true, IsElementary: true, Explanation: "basic", Dependencies: []string{}}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.PacingDelay = 0
	return p
}

func newTestController(a Analyzer, opts ...Option) *Controller {
	base := []Option{
		WithPolicy(testPolicy()),
		WithIDGenerator(sequentialIDs()),
		WithLogger(logging.Discard()),
	}
	return NewController(a, append(base, opts...)...)
}

func strPtr(s string) *string { return &s }

func nodesOf(events []Event) []NodeData {
	var out []NodeData
	for _, ev := range events {
		if ev.Type == EventNode {
			out = append(out, ev.Data.(NodeData))
		}
	}
	return out
}

func updatesOf(events []Event) []NodeUpdateData {
	var out []NodeUpdateData
	for _, ev := range events {
		if ev.Type == EventNodeUpdate {
			out = append(out, ev.Data.(NodeUpdateData))
		}
	}
	return out
}

func statementsByID(events []Event) map[string]string {
	out := map[string]string{}
	for _, n := range nodesOf(events) {
		out[n.ID] = n.Statement
	}
	return out
}

// =============================================================================
// Scenarios
// =============================================================================

func TestRun_OnePlusTwo(t *testing.T) {
	a := newFake().deps("1+2=3", "adding 2 numbers")
	col := NewCollector(nil)

	sum, err := newTestController(a).Run(context.Background(), "  1+2=3 ", col)
	require.NoError(t, err)

	// id-1 is the session, id-2 the root.
	want := []Event{
		{Type: EventNode, Data: NodeData{
			ID: "id-2", Statement: "1+2=3", Level: 0, ParentID: nil,
			GoalStatement: "1+2=3", PathToGoal: []string{},
		}},
		{Type: EventNodeUpdate, Data: NodeUpdateData{
			ID: "id-2", IsElementary: false, ProofText: "sketch 1+2=3", Explanation: "explains 1+2=3",
			GoalStatement: "1+2=3", PathToGoal: []string{},
		}},
		{Type: EventNode, Data: NodeData{
			ID: "id-3", Statement: "adding 2 numbers", Level: 1, ParentID: strPtr("id-2"),
			GoalStatement: "1+2=3", PathToGoal: []string{"1+2=3"},
		}},
		{Type: EventNodeUpdate, Data: NodeUpdateData{
			ID: "id-3", IsElementary: true, Explanation: "basic",
			GoalStatement: "1+2=3", PathToGoal: []string{"1+2=3"},
		}},
		{Type: EventComplete, Data: MessageData{Message: "Proof analysis complete"}},
	}
	if diff := cmp.Diff(want, col.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "id-1", sum.SessionID)
	assert.Equal(t, "completed", sum.State)
	assert.Equal(t, 2, sum.Nodes)
	assert.Equal(t, 2, sum.Analyzed)
	assert.Equal(t, 1, sum.Elementary)
	assert.Equal(t, 1, sum.MaxLevel)
	assert.Equal(t, 2, sum.Batches)
	assert.False(t, sum.Truncated)
}

func TestRun_UpdatesFollowDispatchOrder(t *testing.T) {
	a := newFake().deps("G", "slow", "fast")
	a.delays["slow"] = 60 * time.Millisecond

	col := NewCollector(nil)
	_, err := newTestController(a).Run(context.Background(), "G", col)
	require.NoError(t, err)

	names := statementsByID(col.Events())
	var order []string
	for _, u := range updatesOf(col.Events()) {
		order = append(order, names[u.ID])
	}
	assert.Equal(t, []string{"G", "slow", "fast"}, order)
}

func TestRun_LevelBarrier(t *testing.T) {
	// a's child must not be analyzed before slow sibling b finishes.
	a := newFake().deps("G", "a", "b").deps("a", "a1")
	a.delays["b"] = 40 * time.Millisecond

	_, err := newTestController(a).Run(context.Background(), "G", NewCollector(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"G"}, a.calls[:1])
	assert.ElementsMatch(t, []string{"a", "b"}, a.calls[1:3])
	assert.Equal(t, "a1", a.calls[3])
}

func TestRun_DuplicateSiblingDependencies(t *testing.T) {
	a := newFake().
		deps("G", "A", "B").
		deps("A", "C", "shared").
		deps("B", "  Shared ", "D", "")

	col := NewCollector(nil)
	sum, err := newTestController(a).Run(context.Background(), "G", col)
	require.NoError(t, err)

	nodes := nodesOf(col.Events())
	var statements []string
	for _, n := range nodes {
		statements = append(statements, n.Statement)
	}
	assert.Equal(t, []string{"G", "A", "B", "C", "shared", "D"}, statements)
	assert.Equal(t, 6, sum.Nodes)

	names := statementsByID(col.Events())
	for _, n := range nodes {
		if n.Statement == "shared" {
			assert.Equal(t, "A", names[*n.ParentID], "first claimant in dispatch order wins")
		}
	}

	analyzed := map[string]int{}
	for _, s := range a.calls {
		analyzed[s]++
	}
	for s, n := range analyzed {
		assert.Equal(t, 1, n, "%q analyzed more than once", s)
	}
}

func TestRun_GoalReappearingIsNotRecreated(t *testing.T) {
	a := newFake().deps("G", "A").deps("A", "g", "B")

	col := NewCollector(nil)
	sum, err := newTestController(a).Run(context.Background(), "G", col)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Nodes)
}

func TestRun_DepthBound(t *testing.T) {
	a := newFake()
	a.fallback = func(s string) analysis.Result {
		return analysis.Result{IsProvable: true, Dependencies: []string{s + "'"}}
	}
	p := testPolicy()
	p.MaxDepth = 3

	col := NewCollector(nil)
	sum, err := newTestController(a, WithPolicy(p)).Run(context.Background(), "S", col)
	require.NoError(t, err)

	assert.Equal(t, 3, a.callCount(), "levels 0..2 analyzed")
	assert.Equal(t, 3, sum.MaxLevel, "a node at the limit is created but not expanded")
	for _, n := range nodesOf(col.Events()) {
		assert.LessOrEqual(t, n.Level, p.MaxDepth)
	}
	for _, u := range updatesOf(col.Events()) {
		assert.Less(t, len(u.PathToGoal), p.MaxDepth)
	}
	assert.Equal(t, EventComplete, col.Events()[len(col.Events())-1].Type)
}

func TestRun_BatchCeiling(t *testing.T) {
	a := newFake()
	a.fallback = func(s string) analysis.Result {
		return analysis.Result{Dependencies: []string{s + "+"}}
	}
	p := testPolicy()
	p.MaxDepth = 100
	p.MaxBatches = 2

	col := NewCollector(nil)
	sum, err := newTestController(a, WithPolicy(p)).Run(context.Background(), "S", col)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Batches)
	assert.True(t, sum.Truncated)
	assert.Equal(t, 2, a.callCount())
	events := col.Events()
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestRun_FailedAnalysesAreSkipped(t *testing.T) {
	a := newFake().deps("G", "bad", "boom", "ok")
	a.errs["bad"] = errors.New("nope")
	a.panics["boom"] = true

	col := NewCollector(nil)
	sum, err := newTestController(a).Run(context.Background(), "G", col)
	require.NoError(t, err)

	names := statementsByID(col.Events())
	var updated []string
	for _, u := range updatesOf(col.Events()) {
		updated = append(updated, names[u.ID])
	}
	assert.Equal(t, []string{"G", "ok"}, updated)
	assert.Equal(t, 4, sum.Nodes)
	assert.Equal(t, 2, sum.Analyzed)
}

func TestRun_DegradedResultEndsBranch(t *testing.T) {
	a := newFake()
	a.script["G"] = analysis.DegradedResult()

	col := NewCollector(nil)
	sum, err := newTestController(a).Run(context.Background(), "G", col)
	require.NoError(t, err)

	updates := updatesOf(col.Events())
	require.Len(t, updates, 1)
	assert.False(t, updates[0].IsElementary)
	assert.Equal(t, "Unable to analyze", updates[0].ProofText)
	assert.Equal(t, "Analysis failed after multiple retries", updates[0].Explanation)
	assert.Equal(t, 1, sum.Nodes)
}

func TestRun_ElementaryNodeIgnoresDependencies(t *testing.T) {
	a := newFake()
	a.script["G"] = analysis.Result{IsElementary: true, Dependencies: []string{"x", "y"}}

	sum, err := newTestController(a).Run(context.Background(), "G", NewCollector(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Nodes)
}

func TestRun_PathInvariants(t *testing.T) {
	a := newFake().
		deps("G", "A", "B").
		deps("A", "A1", "A2").
		deps("B", "B1").
		deps("A1", "A11")

	col := NewCollector(nil)
	_, err := newTestController(a).Run(context.Background(), "G", col)
	require.NoError(t, err)

	nodes := nodesOf(col.Events())
	byID := map[string]NodeData{}
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, n := range nodes {
		assert.Equal(t, "G", n.GoalStatement)
		assert.Len(t, n.PathToGoal, n.Level)
		if n.ParentID == nil {
			assert.Equal(t, 0, n.Level)
			continue
		}
		parent := byID[*n.ParentID]
		assert.Equal(t, parent.Level+1, n.Level)
		assert.Equal(t, append(append([]string{}, parent.PathToGoal...), parent.Statement), n.PathToGoal)
	}
}

func TestRun_EmptyStatement(t *testing.T) {
	a := newFake()
	col := NewCollector(nil)
	_, err := newTestController(a).Run(context.Background(), " \n\t", col)
	assert.ErrorIs(t, err, ErrEmptyStatement)
	assert.Empty(t, col.Events())
	assert.Zero(t, a.callCount())
}

func TestRun_EmitFailureAborts(t *testing.T) {
	a := newFake().deps("G", "A", "B")
	var got []Event
	failing := EmitterFunc(func(_ context.Context, ev Event) error {
		if len(got) == 2 {
			return errors.New("socket closed")
		}
		got = append(got, ev)
		return nil
	})

	sum, err := newTestController(a).Run(context.Background(), "G", failing)
	require.Error(t, err)
	var emitErr *EmitError
	require.ErrorAs(t, err, &emitErr)
	assert.Equal(t, EventNode, emitErr.Type)
	assert.Len(t, got, 2)
	assert.Equal(t, "aborted", sum.State)
	assert.Equal(t, 1, a.callCount(), "no level after the failure is dispatched")
}

func TestRun_CancelledMidLevel(t *testing.T) {
	a := newFake().deps("G", "A")
	a.delays["A"] = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	col := NewCollector(func(ev Event) {
		if ev.Type == EventNode {
			if d := ev.Data.(NodeData); d.Statement == "A" {
				go func() {
					time.Sleep(10 * time.Millisecond)
					cancel()
				}()
			}
		}
	})
	defer cancel()

	start := time.Now()
	_, err := newTestController(a).Run(ctx, "G", col)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	for _, ev := range col.Events() {
		assert.NotEqual(t, EventComplete, ev.Type)
	}
	// Let the cancel goroutine exit before goleak looks.
	time.Sleep(20 * time.Millisecond)
}

func TestRun_MaxConcurrency(t *testing.T) {
	a := newFake().deps("G", "a", "b", "c", "d")
	for _, s := range []string{"a", "b", "c", "d"} {
		a.delays[s] = 20 * time.Millisecond
	}
	p := testPolicy()
	p.MaxConcurrency = 2

	_, err := newTestController(a, WithPolicy(p)).Run(context.Background(), "G", NewCollector(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, a.maxInflight)
}

func TestRun_Pacing(t *testing.T) {
	a := newFake().deps("G", "a", "b", "c")
	p := testPolicy()
	p.PacingDelay = 15 * time.Millisecond

	start := time.Now()
	_, err := newTestController(a, WithPolicy(p)).Run(context.Background(), "G", NewCollector(nil))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

type fakeRecorder struct {
	sessions []string
	levels   []int
}

func (r *fakeRecorder) RecordSession(status string, _ Summary) {
	r.sessions = append(r.sessions, status)
}
func (r *fakeRecorder) RecordLevel(n int) { r.levels = append(r.levels, n) }

func TestRun_RecordsMetrics(t *testing.T) {
	a := newFake().deps("G", "a", "b")
	rec := &fakeRecorder{}
	_, err := newTestController(a, WithRecorder(rec)).Run(context.Background(), "G", NewCollector(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{StatusCompleted}, rec.sessions)
	assert.Equal(t, []int{1, 2}, rec.levels)
}

func TestNewController_PanicsOnNilAnalyzer(t *testing.T) {
	assert.Panics(t, func() { NewController(nil) })
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "level_expanding", StateLevelExpanding.String())
	assert.Equal(t, "unknown", State(42).String())
}
