// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package session

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wangp/decldbg/internal/config"
	"github.com/wangp/decldbg/internal/event"
	"github.com/wangp/decldbg/internal/filter"
	"github.com/wangp/decldbg/internal/frontend"
	"github.com/wangp/decldbg/internal/replay"
	"github.com/wangp/decldbg/internal/store"
)

func tracedLayout() event.ProcedureLayout {
	return event.ProcedureLayout{HasExecTracing: true, TraceLevel: event.TraceLevelDeep}
}

// harness bundles a Controller with its fakes and a feed helper so the
// scenario tests read as event scripts.
type harness struct {
	t      *testing.T
	ctrl   *Controller
	replay *replay.Fake
	front  *frontend.Fake
}

func newHarness(t *testing.T, stepSize int) *harness {
	t.Helper()

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.InitialStepSize = stepSize

	rep := replay.NewFake()
	front := frontend.NewFake()
	return &harness{
		t:      t,
		ctrl:   New(cfg, rep, front, nil, nil, nil),
		replay: rep,
		front:  front,
	}
}

func (h *harness) start(eventNumber, seqno, callDepth int64) {
	h.t.Helper()
	_, err := h.ctrl.Start(context.Background(), StartRequest{
		Mode: ModeInteractive,
		Event: event.Event{
			Port:        event.Exit,
			EventNumber: eventNumber,
			CallSeqno:   seqno,
			CallDepth:   callDepth,
			Layout:      tracedLayout(),
		},
	})
	require.NoError(h.t, err)
}

// feed delivers one event, failing the test on any session error.
func (h *harness) feed(num, seqno int64, port event.Port, path string) store.NodeRef {
	h.t.Helper()
	out, err := h.ctrl.Feed(context.Background(), event.Event{
		Port:        port,
		EventNumber: num,
		CallSeqno:   seqno,
		GoalPath:    path,
		Layout:      tracedLayout(),
	}, nil)
	require.NoError(h.t, err)
	return out.Node
}

func (h *harness) node(ref store.NodeRef) *store.Node {
	return h.ctrl.s.Get(ref)
}

// TestSingleDeterministicCall drives one CALL/EXIT pair through a
// session and checks the interface chain between them.
func TestSingleDeterministicCall(t *testing.T) {
	h := newHarness(t, 3)
	h.start(2, 1, 1)

	call := h.feed(1, 1, event.Call, "")
	exit := h.feed(2, 1, event.Exit, "")

	require.Equal(t, call, h.node(exit).Call)
	require.Equal(t, exit, h.node(call).LastInterface)
	require.Equal(t, call, h.node(exit).PrevInterface)
	require.False(t, h.node(call).AtDepthLimit)

	require.False(t, h.ctrl.Active(), "session should end after the front end's verdict")
	require.Len(t, h.front.Requests, 1)
	require.Equal(t, exit, h.front.Requests[0].Root)
}

// TestIfThenElseTaken checks COND status resolution and THEN pairing.
func TestIfThenElseTaken(t *testing.T) {
	h := newHarness(t, 3)
	h.start(4, 1, 1)

	call := h.feed(1, 1, event.Call, "")
	cond := h.feed(2, 1, event.Cond, "c2;")
	then := h.feed(3, 1, event.Then, "c2;t;")
	exit := h.feed(4, 1, event.Exit, "")

	require.Equal(t, store.Succeeded, h.node(cond).Status)
	require.Equal(t, cond, h.node(then).Cond)
	require.Equal(t, call, h.node(exit).Call)
}

// TestNegationFailing checks NEG_ENTER status resolution.
func TestNegationFailing(t *testing.T) {
	h := newHarness(t, 3)
	h.start(4, 1, 1)

	h.feed(1, 1, event.Call, "")
	neg := h.feed(2, 1, event.NegEnter, "n2;")
	negFail := h.feed(3, 1, event.NegFailure, "n2;e;")
	h.feed(4, 1, event.Exit, "")

	require.Equal(t, store.Failed, h.node(neg).Status)
	require.Equal(t, neg, h.node(negFail).Neg)
}

// TestDisjunctionSecondBranchSucceeds drives a failed first disjunct,
// a redo, and a succeeding second disjunct, then checks the DISJ
// back-pointer and the full interface chain on the CALL.
func TestDisjunctionSecondBranchSucceeds(t *testing.T) {
	h := newHarness(t, 3)
	h.start(6, 1, 1)

	call := h.feed(1, 1, event.Call, "")
	first := h.feed(2, 1, event.Disj, "d1;")
	fail := h.feed(3, 1, event.Fail, "")
	redo := h.feed(4, 1, event.Redo, "")
	later := h.feed(5, 1, event.Disj, "d2;")
	exit := h.feed(6, 1, event.Exit, "")

	require.Equal(t, store.KindFirstDisj, h.node(first).Kind)
	require.Equal(t, store.KindLaterDisj, h.node(later).Kind)
	require.Equal(t, first, h.node(later).FirstDisj)

	require.Equal(t, call, h.node(fail).Call)
	require.Equal(t, call, h.node(redo).Call)
	require.Equal(t, call, h.node(exit).Call)

	// The interface chain on the CALL runs EXIT -> REDO -> FAIL -> CALL.
	require.Equal(t, exit, h.node(call).LastInterface)
	require.Equal(t, redo, h.node(exit).PrevInterface)
	require.Equal(t, fail, h.node(redo).PrevInterface)
	require.Equal(t, call, h.node(fail).PrevInterface)
}

// TestDepthLimitExcludesGrandchildren checks that interface events at
// exactly max_depth+1 are kept while deeper events are rejected, and
// that the at-depth-limit flag lands on the right CALL.
func TestDepthLimitExcludesGrandchildren(t *testing.T) {
	h := newHarness(t, 1)
	h.start(8, 1, 1)

	outer := h.feed(1, 1, event.Call, "")
	inner := h.feed(2, 2, event.Call, "")

	// A grandchild call at depth 3 is past the kept band.
	out, err := h.ctrl.Feed(context.Background(), event.Event{
		Port: event.Call, EventNumber: 3, CallSeqno: 3, Layout: tracedLayout(),
	}, nil)
	require.NoError(t, err)
	require.NotEqual(t, store.NilRef, inner)
	require.False(t, out.Node.Valid(), "grandchild CALL must be rejected")

	// Its EXIT too.
	out, err = h.ctrl.Feed(context.Background(), event.Event{
		Port: event.Exit, EventNumber: 4, CallSeqno: 3, Layout: tracedLayout(),
	}, nil)
	require.NoError(t, err)
	require.False(t, out.Node.Valid())

	innerExit := h.feed(5, 2, event.Exit, "")
	outerExit := h.feed(8, 1, event.Exit, "")

	require.False(t, h.node(outer).AtDepthLimit)
	require.True(t, h.node(inner).AtDepthLimit)
	require.Equal(t, inner, h.node(innerExit).Call)
	require.Equal(t, outer, h.node(outerExit).Call)
}

// TestNestedExitPairsWithItsOwnCall guards the contour walk against
// matching an EXIT to the completed inner call instead of its own.
func TestNestedExitPairsWithItsOwnCall(t *testing.T) {
	h := newHarness(t, 3)
	h.start(4, 1, 1)

	outer := h.feed(1, 1, event.Call, "")
	inner := h.feed(2, 2, event.Call, "")
	innerExit := h.feed(3, 2, event.Exit, "")
	outerExit := h.feed(4, 1, event.Exit, "")

	require.Equal(t, inner, h.node(innerExit).Call)
	require.Equal(t, outer, h.node(outerExit).Call)
	require.Equal(t, h.node(outerExit).CallSeqno, h.node(outer).CallSeqno)
}

// TestSupertreeRestart follows the full require_supertree flow: an
// initial session completes, the front end asks for a supertree, and the
// climbed window admits ancestor frames until it re-reaches the former
// root, which becomes the implicit root of the new fragment.
func TestSupertreeRestart(t *testing.T) {
	h := newHarness(t, 3)
	h.front.ScriptResponse(frontend.Response{
		Kind:         frontend.RequireSupertree,
		FinalEvent:   2,
		TopmostSeqno: 10,
	})

	h.start(2, 10, 10)
	h.feed(1, 10, event.Call, "")
	h.feed(2, 10, event.Exit, "")

	// The front end's require_supertree response restarts collection
	// with the window climbed one step up the call stack.
	require.True(t, h.ctrl.Active())
	require.EqualValues(t, 7, h.ctrl.topmostCallDepth)
	require.EqualValues(t, 4, h.ctrl.classifier.MaxDepth)
	require.True(t, h.ctrl.classifier.BuildingSupertree)
	require.True(t, h.ctrl.classifier.Inside)
	require.Len(t, h.replay.Requests, 2)

	// Replayed ancestor frames.
	h.feed(10, 7, event.Call, "")
	h.feed(11, 8, event.Call, "")
	h.feed(12, 9, event.Call, "")

	// The former root: accepted as the implicit root of the supertree.
	implicitCall := h.feed(13, 10, event.Call, "")
	require.True(t, implicitCall.Valid())

	// Events inside the already-materialized subtree are rejected.
	rejected := h.feed(14, 11, event.Call, "")
	require.False(t, rejected.Valid())
	rejected = h.feed(15, 11, event.Exit, "")
	require.False(t, rejected.Valid())

	// Leaving the subtree: the closing EXIT is constructed and becomes
	// the fragment's root.
	implicitExit := h.feed(16, 10, event.Exit, "")
	require.True(t, implicitExit.Valid())
	require.Equal(t, implicitCall, h.node(implicitExit).Call)

	h.feed(17, 9, event.Exit, "")
	h.feed(18, 8, event.Exit, "")
	h.feed(19, 7, event.Exit, "")

	// edt_depth returned to zero on the topmost EXIT, completing the
	// supertree and invoking the front end a second time.
	require.False(t, h.ctrl.Active())
	require.Len(t, h.front.Requests, 2)
	require.Equal(t, implicitExit, h.front.Requests[1].Root)
}

// TestSupertreeRestartClampsAtTopOfProgram checks the repeated-climb
// behavior: each supertree restart descends topmost_call_depth by the
// step size, clamping at 1.
func TestSupertreeRestartClampsAtTopOfProgram(t *testing.T) {
	h := newHarness(t, 3)
	h.start(2, 1, 4)
	require.EqualValues(t, 4, h.ctrl.topmostCallDepth)

	require.NoError(t, h.ctrl.Restart(context.Background(), store.NilRef, 2, 1, true))
	require.EqualValues(t, 1, h.ctrl.topmostCallDepth)

	require.NoError(t, h.ctrl.Restart(context.Background(), store.NilRef, 2, 1, true))
	require.EqualValues(t, 1, h.ctrl.topmostCallDepth, "climb clamps at the top of the program")
}

// TestRestartRespectsMaxDepthCeiling checks that the configured ceiling
// bounds the depth limit a restart collects with.
func TestRestartRespectsMaxDepthCeiling(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.InitialStepSize = 3
	cfg.MaxDepthCeiling = 3

	h := &harness{
		t:      t,
		replay: replay.NewFake(),
		front:  frontend.NewFake(),
	}
	h.ctrl = New(cfg, h.replay, h.front, nil, nil, nil)

	h.start(2, 1, 5)
	require.NoError(t, h.ctrl.Restart(context.Background(), store.NilRef, 2, 1, true))
	require.EqualValues(t, 3, h.ctrl.classifier.MaxDepth, "ceiling must cap the restart depth limit")
}

// TestSubtreeRestartLinksFragmentOntoTree checks that a require_subtree
// continuation seeds the new fragment's prev from call_preceding.
func TestSubtreeRestartLinksFragmentOntoTree(t *testing.T) {
	h := newHarness(t, 3)
	h.front.ScriptResponse(frontend.Response{
		Kind:          frontend.RequireSubtree,
		FinalEvent:    6,
		TopmostSeqno:  2,
		CallPreceding: 0, // the initial CALL node
	})

	h.start(2, 1, 1)
	call := h.feed(1, 1, event.Call, "")
	h.feed(2, 1, event.Exit, "")

	require.True(t, h.ctrl.Active())

	childCall := h.feed(5, 2, event.Call, "")
	require.Equal(t, call, h.node(childCall).Prev, "fragment must link onto call_preceding")
	h.feed(6, 2, event.Exit, "")

	require.False(t, h.ctrl.Active())
	require.Len(t, h.front.Requests, 2)
}

// TestStartRejectsInvalidConditions exercises every start() precondition.
func TestStartRejectsInvalidConditions(t *testing.T) {
	uci := tracedLayout()
	uci.CompilerGenerated = true

	shallow := tracedLayout()
	shallow.TraceLevel = event.TraceLevelShallow

	suppressed := tracedLayout()
	suppressed.Suppressed = []string{"user"}

	cases := []struct {
		name string
		ev   event.Event
		want error
	}{
		{"non-final port", event.Event{Port: event.Call, Layout: tracedLayout()}, ErrNotFinalPort},
		{"no exec tracing", event.Event{Port: event.Exit}, filter.ErrLayoutMissing},
		{"uci procedure", event.Event{Port: event.Exit, Layout: uci}, ErrUCIProcedure},
		{"shallow trace level", event.Event{Port: event.Exit, Layout: shallow}, ErrInadequateTraceLevel},
		{"suppressed events", event.Event{Port: event.Exit, Layout: suppressed}, ErrSuppressedEvents},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 3)
			_, err := h.ctrl.Start(context.Background(), StartRequest{Event: tc.ev})
			require.ErrorIs(t, err, ErrInvalidStartCondition)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStartFailsWhenReplayFails(t *testing.T) {
	h := newHarness(t, 3)
	h.replay.ScriptRetry(replay.Result{Status: replay.StatusError}, nil)

	_, err := h.ctrl.Start(context.Background(), StartRequest{
		Event: event.Event{Port: event.Exit, EventNumber: 2, CallSeqno: 1, CallDepth: 1, Layout: tracedLayout()},
	})
	require.ErrorIs(t, err, ErrReplayFailed)
	require.False(t, h.ctrl.Active())
}

func TestOverrunAbortsSession(t *testing.T) {
	h := newHarness(t, 3)
	h.start(2, 1, 1)

	_, err := h.ctrl.Feed(context.Background(), event.Event{
		Port: event.Call, EventNumber: 3, CallSeqno: 1, Layout: tracedLayout(),
	}, nil)
	require.Error(t, err)
	require.False(t, h.ctrl.Active())
}

// TestDumpModeWritesSnapshot runs a dump-mode session against an
// in-memory sink and decodes the result.
func TestDumpModeWritesSnapshot(t *testing.T) {
	var buf bytes.Buffer
	prev := OpenDump
	OpenDump = func(string) (io.WriteCloser, error) { return nopCloser{&buf}, nil }
	defer func() { OpenDump = prev }()

	h := newHarness(t, 3)
	_, err := h.ctrl.Start(context.Background(), StartRequest{
		Mode:     ModeDump,
		DumpPath: "ignored",
		Event: event.Event{
			Port: event.Exit, EventNumber: 2, CallSeqno: 1, CallDepth: 1, Layout: tracedLayout(),
		},
	})
	require.NoError(t, err)

	h.feed(1, 1, event.Call, "")
	h.feed(2, 1, event.Exit, "")

	require.False(t, h.ctrl.Active())
	require.Empty(t, h.front.Requests, "dump mode must not call the front end")
	require.NotZero(t, buf.Len())
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestGotoSelectedEvent(t *testing.T) {
	h := newHarness(t, 3)
	require.NoError(t, h.ctrl.GotoSelectedEvent(context.Background(), 42))
	require.Equal(t, []int64{42}, h.replay.Gotos)
}

func TestTrustListRoundTrip(t *testing.T) {
	h := newHarness(t, 3)
	h.ctrl.AddTrustedModule("list")
	h.ctrl.AddTrustedPredOrFunc("pred foo/2")
	h.ctrl.TrustStandardLibrary()

	ok, err := h.ctrl.RemoveTrusted(1)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.ctrl.RemoveTrusted(5)
	require.ErrorIs(t, err, ErrTrustIndexOutOfRange)

	out := h.ctrl.ListTrusted(FormatPlain)
	require.Contains(t, out, "module list")
	require.Contains(t, out, "standard library")
	require.NotContains(t, out, "foo/2")
}

func TestSearchModeParsing(t *testing.T) {
	mode, ok := ParseSearchMode("divide_and_query")
	require.True(t, ok)
	require.Equal(t, DivideAndQuery, mode)

	_, ok = ParseSearchMode("breadth_first")
	require.False(t, ok)

	require.Equal(t, TopDown, DefaultSearchMode())
}
