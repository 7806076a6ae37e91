// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package contour implements the leftward structural traversal over a
// partially built EDT used to resolve THEN/ELSE, NEG_SUCCESS/NEG_FAILURE,
// later-DISJ/first-DISJ, REDO/EXIT, and FAIL/CALL pairings.
// It is pure and read-only: it never allocates or mutates nodes.
package contour

import "github.com/wangp/decldbg/internal/store"

// notFoundError is the shared shape of the walker's assertion failures:
// a search ran off the front of the store without finding its target,
// which means a store invariant was broken upstream. None of these are
// recoverable.
type notFoundError struct{ what string }

func (e *notFoundError) Error() string { return "contour: " + e.what + " not found" }

var (
	// ErrNoMatchingExit is raised when a REDO's closing interface event
	// cannot be found by walking the prior completed contour.
	ErrNoMatchingExit = &notFoundError{"matching EXIT for REDO"}
	// ErrNotADisj is raised when a LATER_DISJ's matching prior DISJ of
	// the same construct cannot be found.
	ErrNotADisj = &notFoundError{"matching DISJ"}
	// ErrNoCall is raised when a FAIL/EXIT/EXCP's matching CALL cannot
	// be found by walking the contour.
	ErrNoCall = &notFoundError{"matching CALL"}
	// ErrNoCond is raised when a THEN/ELSE's matching COND cannot be
	// found.
	ErrNoCond = &notFoundError{"matching COND"}
	// ErrNoNegEnter is raised when a NEG_SUCCESS/NEG_FAILURE's matching
	// NEG_ENTER cannot be found.
	ErrNoNegEnter = &notFoundError{"matching NEG_ENTER"}
)

// StepLeftInContour performs one step of the contour rule:
//   - from EXIT/FAIL/EXCP, step to the node preceding its CALL; the
//     completed (or failed) call's events are not part of the
//     surrounding contour;
//   - from REDO, step to its CALL, which is back on the current contour
//     once the call has been re-entered;
//   - from THEN/ELSE, step to its COND;
//   - from NEG_SUCCESS/NEG_FAILURE, step to its NEG_ENTER;
//   - from any other node, step to Prev.
//
// Bumps the store version, since the front end may have memoized
// positions.
func StepLeftInContour(s store.Reader, n store.NodeRef) store.NodeRef {
	s.BumpVersion()
	return stepLeft(s, n)
}

// stepLeft is the version-free core, used internally by multi-step walks
// so they bump the version once per public call, not once per step.
func stepLeft(s store.Reader, n store.NodeRef) store.NodeRef {
	node := s.Get(n)

	switch node.Kind {
	case store.KindExit, store.KindFail, store.KindExcp:
		return s.Get(node.Call).Prev
	case store.KindRedo:
		return node.Call
	case store.KindThen, store.KindElse:
		return node.Cond
	case store.KindNegSuccess, store.KindNegFailure:
		return node.Neg
	default:
		return node.Prev
	}
}

// FindPrevContour steps out of the current open construct to the
// preceding complete contour, used when searching across a disjunction
// or across a failed attempt for its predecessor. An EXIT/FAIL/EXCP
// node already terminates a completed contour and is returned as is; a
// REDO descends into the contour ended by the interface event it
// reopens; anything else yields its construction-order predecessor.
//
// Bumps store_version once.
func FindPrevContour(s store.Reader, n store.NodeRef) store.NodeRef {
	s.BumpVersion()

	node := s.Get(n)
	switch node.Kind {
	case store.KindExit, store.KindFail, store.KindExcp:
		return n
	case store.KindRedo:
		return s.Get(node.PrevInterface).Prev
	default:
		return node.Prev
	}
}

// FindMatchingCall walks leftwards from start until the first CALL node
// is reached, following the contour rule. Used to pair an EXIT (and a
// non-trivial FAIL or EXCP) to the CALL it closes.
func FindMatchingCall(s store.Reader, start store.NodeRef) (store.NodeRef, error) {
	s.BumpVersion()

	cur := start
	for i := 0; i < maxWalkSteps; i++ {
		node := s.Get(cur)
		if node.Kind == store.KindCall {
			return cur, nil
		}
		cur = stepLeft(s, cur)
		if !cur.Valid() {
			return store.NilRef, ErrNoCall
		}
	}
	return store.NilRef, ErrNoCall
}

// FindMatchingExit walks the prior completed contour (via
// FindPrevContour) scanning for the closing interface node (normally an
// EXIT, but a FAIL or EXCP when the attempt being reopened did not
// succeed) whose CallSeqno equals seqno. Used to pair a REDO to the
// invocation it re-enters.
func FindMatchingExit(s store.Reader, start store.NodeRef, seqno int64) (store.NodeRef, error) {
	cur := FindPrevContour(s, start)

	for i := 0; i < maxWalkSteps; i++ {
		if !cur.Valid() {
			return store.NilRef, ErrNoMatchingExit
		}

		node := s.Get(cur)
		switch node.Kind {
		case store.KindExit, store.KindFail, store.KindExcp:
			if node.CallSeqno == seqno {
				return cur, nil
			}
		}
		cur = stepLeft(s, cur)
	}
	return store.NilRef, ErrNoMatchingExit
}

// FindMatchingCond walks leftwards in the current contour, starting at
// start, until a COND node whose GoalPath is "in the same construct" as
// path is found. sameConstruct is injected so this
// package stays free of any goalpath import cycle concerns and so tests
// can exercise the walk with a trivial predicate.
func FindMatchingCond(s store.Reader, start store.NodeRef, path string, sameConstruct func(a, b string) bool) (store.NodeRef, error) {
	s.BumpVersion()

	cur := start
	for i := 0; i < maxWalkSteps; i++ {
		if !cur.Valid() {
			return store.NilRef, ErrNoCond
		}

		node := s.Get(cur)
		if node.Kind == store.KindCond && sameConstruct(node.GoalPath, path) {
			return cur, nil
		}
		cur = stepLeft(s, cur)
	}
	return store.NilRef, ErrNoCond
}

// FindMatchingNegEnter is the NEG_ENTER analog of FindMatchingCond.
func FindMatchingNegEnter(s store.Reader, start store.NodeRef, path string, sameConstruct func(a, b string) bool) (store.NodeRef, error) {
	s.BumpVersion()

	cur := start
	for i := 0; i < maxWalkSteps; i++ {
		if !cur.Valid() {
			return store.NilRef, ErrNoNegEnter
		}

		node := s.Get(cur)
		if node.Kind == store.KindNegEnter && sameConstruct(node.GoalPath, path) {
			return cur, nil
		}
		cur = stepLeft(s, cur)
	}
	return store.NilRef, ErrNoNegEnter
}

// FindMatchingDisj walks the prior contour (via FindPrevContour) looking
// for a FIRST_DISJ or LATER_DISJ of the same disjunction as path, used to
// resolve a LATER_DISJ's first_disj back-pointer.
func FindMatchingDisj(s store.Reader, start store.NodeRef, sameConstruct func(a, b string) bool, path string) (store.NodeRef, error) {
	cur := FindPrevContour(s, start)

	for i := 0; i < maxWalkSteps; i++ {
		if !cur.Valid() {
			return store.NilRef, ErrNotADisj
		}

		node := s.Get(cur)
		if (node.Kind == store.KindFirstDisj || node.Kind == store.KindLaterDisj) && sameConstruct(node.GoalPath, path) {
			if node.Kind == store.KindFirstDisj {
				return cur, nil
			}
			return node.FirstDisj, nil
		}
		cur = stepLeft(s, cur)
	}
	return store.NilRef, ErrNotADisj
}

// maxWalkSteps bounds contour walks so a broken store invariant (a cycle
// introduced by a bug elsewhere) fails loudly instead of hanging.
const maxWalkSteps = 1 << 20
