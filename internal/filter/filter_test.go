// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package filter

import (
	"testing"

	"github.com/wangp/decldbg/internal/event"
	"github.com/wangp/decldbg/internal/store"
)

func tracedLayout() event.ProcedureLayout {
	return event.ProcedureLayout{HasExecTracing: true, TraceLevel: event.TraceLevelDeep}
}

// TestSubtreeCollectionHappyPath drives CALL→COND→THEN→EXIT through the
// Classifier, all at call_seqno 1, and checks that the window accepts
// every event, the CALL/EXIT pair correctly, and session completion
// fires exactly on the event_number matching last_event.
func TestSubtreeCollectionHappyPath(t *testing.T) {
	s := store.New(nil)
	c := New(s, 2 /* maxDepth */, 13 /* lastEvent */, 1 /* startSeqno */, 0, 1, false, nil)

	steps := []struct {
		ev           event.Event
		wantReason   Reason
		wantComplete bool
	}{
		{event.Event{Port: event.Call, EventNumber: 10, CallSeqno: 1, Layout: tracedLayout()}, Accepted, false},
		{event.Event{Port: event.Cond, EventNumber: 11, CallSeqno: 1, GoalPath: "c2;"}, Accepted, false},
		{event.Event{Port: event.Then, EventNumber: 12, CallSeqno: 1, GoalPath: "c2;t;"}, Accepted, false},
		{event.Event{Port: event.Exit, EventNumber: 13, CallSeqno: 1, Layout: tracedLayout()}, Accepted, true},
	}

	var refs []store.NodeRef
	for i, step := range steps {
		out, err := c.Step(step.ev, nil)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if out.Reason != step.wantReason {
			t.Errorf("step %d: reason = %v, want %v", i, out.Reason, step.wantReason)
		}
		if out.SessionComplete != step.wantComplete {
			t.Errorf("step %d: SessionComplete = %v, want %v", i, out.SessionComplete, step.wantComplete)
		}
		refs = append(refs, out.Node)
	}

	callRef, exitRef := refs[0], refs[3]
	if s.Get(exitRef).Call != callRef {
		t.Errorf("EXIT.Call = %d, want %d", s.Get(exitRef).Call, callRef)
	}
	if s.Get(callRef).LastInterface != exitRef {
		t.Errorf("CALL.LastInterface should be the EXIT after construction")
	}
}

func TestOverrunAborts(t *testing.T) {
	s := store.New(nil)
	c := New(s, 2, 5, 1, 0, 1, false, nil)

	_, err := c.Step(event.Event{Port: event.Call, EventNumber: 6, CallSeqno: 1, Layout: tracedLayout()}, nil)
	if err == nil {
		t.Fatal("expected ErrMissedFinalEvent")
	}
}

func TestUCIFilterRejects(t *testing.T) {
	s := store.New(nil)
	c := New(s, 2, 99, 1, 0, 1, false, nil)

	layout := tracedLayout()
	layout.CompilerGenerated = true

	out, err := c.Step(event.Event{Port: event.Call, EventNumber: 1, CallSeqno: 1, Layout: layout}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != RejectedUCI {
		t.Errorf("reason = %v, want RejectedUCI", out.Reason)
	}
}

func TestWindowRejectsOtherSeqno(t *testing.T) {
	s := store.New(nil)
	c := New(s, 2, 99, 1, 0, 1, false, nil)

	out, err := c.Step(event.Event{Port: event.Call, EventNumber: 1, CallSeqno: 2, Layout: tracedLayout()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != RejectedWindow {
		t.Errorf("reason = %v, want RejectedWindow", out.Reason)
	}
}

func TestDepthLimitRejectsBeyondAdjustedMax(t *testing.T) {
	s := store.New(nil)
	// maxDepth 0: the topmost CALL sits exactly at the limit, its EXIT
	// is still kept (edt_depth+adjustment == max_depth+1), but a nested
	// CALL one level deeper must be rejected.
	c := New(s, 0, 99, 1, 0, 1, false, nil)

	out, err := c.Step(event.Event{Port: event.Call, EventNumber: 1, CallSeqno: 1, Layout: tracedLayout()}, nil)
	if err != nil || out.Reason != Accepted {
		t.Fatalf("topmost CALL should be accepted: %+v, %v", out, err)
	}

	out, err = c.Step(event.Event{Port: event.Call, EventNumber: 2, CallSeqno: 1, Layout: tracedLayout()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != RejectedDepth {
		t.Errorf("reason = %v, want RejectedDepth", out.Reason)
	}
}

func TestSuppressionFilterLatchesWarning(t *testing.T) {
	s := store.New(nil)
	c := New(s, 2, 99, 1, 0, 1, false, nil)

	layout := tracedLayout()
	layout.Suppressed = []string{"some_class"}

	out, err := c.Step(event.Event{Port: event.Call, EventNumber: 1, CallSeqno: 1, Layout: layout}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != RejectedSuppressed || !out.CompilerFlagWarning {
		t.Errorf("out = %+v, want RejectedSuppressed with warning latched", out)
	}
}
