// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package store

import (
	"testing"

	"github.com/wangp/decldbg/internal/event"
)

type countingObserver struct {
	constructed int
	versions    int
}

func (c *countingObserver) NodeConstructed(Kind) { c.constructed++ }
func (c *countingObserver) VersionBumped(uint64) { c.versions++ }

func TestNewCallSetsSelfInterface(t *testing.T) {
	s := New(nil)
	ref := s.NewCall(Node{EventNumber: 1, CallSeqno: 1})

	n := s.Get(ref)
	if n.Kind != KindCall {
		t.Errorf("kind = %v, want KindCall", n.Kind)
	}
	if n.LastInterface != ref {
		t.Errorf("LastInterface = %d, want self (%d)", n.LastInterface, ref)
	}
	if n.Call != NilRef {
		t.Errorf("CALL.Call should be NilRef, got %d", n.Call)
	}
}

func TestNewExitAdvancesInterfaceChain(t *testing.T) {
	s := New(nil)
	call := s.NewCall(Node{CallSeqno: 5})
	exit := s.NewExit(Node{EventNumber: 2}, call)

	callNode := s.Get(call)
	if callNode.LastInterface != exit {
		t.Errorf("after EXIT, CALL.LastInterface = %d, want %d", callNode.LastInterface, exit)
	}

	exitNode := s.Get(exit)
	if exitNode.PrevInterface != call {
		t.Errorf("EXIT.PrevInterface = %d, want %d (the CALL, the prior head of chain)", exitNode.PrevInterface, call)
	}
	if exitNode.CallSeqno != 5 {
		t.Errorf("EXIT should inherit CallSeqno from its CALL, got %d", exitNode.CallSeqno)
	}
}

func TestNewRedoChainsOffPriorExit(t *testing.T) {
	s := New(nil)
	call := s.NewCall(Node{})
	exit := s.NewExit(Node{}, call)
	redo := s.NewRedo(Node{}, call)

	redoNode := s.Get(redo)
	if redoNode.PrevInterface != exit {
		t.Errorf("REDO.PrevInterface = %d, want %d", redoNode.PrevInterface, exit)
	}
	if s.Get(call).LastInterface != redo {
		t.Errorf("CALL.LastInterface should now be the REDO")
	}
}

func TestCondThenElseStatusTransitions(t *testing.T) {
	s := New(nil)
	cond := s.NewCond(Node{})
	if s.Get(cond).Status != Undecided {
		t.Fatalf("new COND should be Undecided")
	}

	then := s.NewThen(Node{}, cond)
	if s.Get(cond).Status != Succeeded {
		t.Errorf("COND should be Succeeded after THEN, got %v", s.Get(cond).Status)
	}
	if s.Get(then).Cond != cond {
		t.Errorf("THEN.Cond = %d, want %d", s.Get(then).Cond, cond)
	}
}

func TestNegEnterSuccessFailure(t *testing.T) {
	s := New(nil)
	neg := s.NewNegEnter(Node{})
	s.NewNegFailure(Node{}, neg)
	if s.Get(neg).Status != Failed {
		t.Errorf("NEG_ENTER should be Failed after NEG_FAILURE")
	}
}

func TestFirstAndLaterDisj(t *testing.T) {
	s := New(nil)
	first := s.NewFirstDisj(Node{GoalPath: "d1;"})
	later := s.NewLaterDisj(Node{GoalPath: "d2;"}, first)

	if s.Get(later).FirstDisj != first {
		t.Errorf("LATER_DISJ.FirstDisj = %d, want %d", s.Get(later).FirstDisj, first)
	}
}

func TestBumpVersionNotifiesObserver(t *testing.T) {
	obs := &countingObserver{}
	s := New(obs)
	s.NewCall(Node{})
	if obs.constructed != 1 {
		t.Errorf("constructed = %d, want 1", obs.constructed)
	}

	v1 := s.BumpVersion()
	v2 := s.BumpVersion()
	if v2 != v1+1 {
		t.Errorf("BumpVersion should be monotone: %d then %d", v1, v2)
	}
	if obs.versions != 2 {
		t.Errorf("observer should see 2 version bumps, got %d", obs.versions)
	}
}

func TestGetInvalidRefPanics(t *testing.T) {
	s := New(nil)
	defer func() {
		if recover() == nil {
			t.Error("Get with an invalid ref should panic")
		}
	}()
	s.Get(NodeRef(99))
}

func TestLayoutCache(t *testing.T) {
	s := New(nil)
	layout := event.ProcedureLayout{Handle: 42, Name: "foo/1"}
	s.CacheLayout(layout)

	got, ok := s.LookupLayout(42)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Name != "foo/1" {
		t.Errorf("got %q, want foo/1", got.Name)
	}

	if _, ok := s.LookupLayout(999); ok {
		t.Error("expected cache miss for unknown handle")
	}
}
