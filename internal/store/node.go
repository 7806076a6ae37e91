// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package store owns all EDT nodes for the life of one debugging session.
// It is an arena: nodes are appended and referenced by a stable NodeRef
// handle, never a pointer, so the graph survives as plain data with no
// lifetime hazards.
package store

import (
	"github.com/wangp/decldbg/internal/atom"
)

// NodeRef is a stable, process-local handle to a node: an index into the
// store's arena. NilRef never refers to a real node.
type NodeRef int32

// NilRef is the null reference: "no node".
const NilRef NodeRef = -1

// Valid reports whether r refers to a real node (not NilRef).
func (r NodeRef) Valid() bool { return r != NilRef }

// Kind tags which variant a Node holds.
type Kind uint8

const (
	KindCall Kind = iota
	KindExit
	KindRedo
	KindFail
	KindExcp
	KindCond
	KindThen
	KindElse
	KindNegEnter
	KindNegSuccess
	KindNegFailure
	KindSwitch
	KindFirstDisj
	KindLaterDisj
)

func (k Kind) String() string {
	switch k {
	case KindCall:
		return "CALL"
	case KindExit:
		return "EXIT"
	case KindRedo:
		return "REDO"
	case KindFail:
		return "FAIL"
	case KindExcp:
		return "EXCP"
	case KindCond:
		return "COND"
	case KindThen:
		return "THEN"
	case KindElse:
		return "ELSE"
	case KindNegEnter:
		return "NEG_ENTER"
	case KindNegSuccess:
		return "NEG_SUCCESS"
	case KindNegFailure:
		return "NEG_FAILURE"
	case KindSwitch:
		return "SWITCH"
	case KindFirstDisj:
		return "FIRST_DISJ"
	case KindLaterDisj:
		return "LATER_DISJ"
	default:
		return "UNKNOWN_KIND"
	}
}

// Status is the resolution state of a COND or NEG_ENTER node.
type Status uint8

const (
	Undecided Status = iota
	Succeeded
	Failed
)

// Node is a tagged-variant EDT node. Every kind shares the header fields
// (Prev, EventNumber, Kind); the rest of the fields are populated
// according to Kind.
type Node struct {
	Kind        Kind
	Prev        NodeRef
	EventNumber int64

	// CALL, EXIT, FAIL, EXCP
	Atom          atom.Atom
	CallSeqno     int64
	AtDepthLimit  bool
	GoalPathEntry string // CALL only: the caller's return goal path
	IOCounter     uint64
	LastInterface NodeRef // mutable, CALL only

	// EXIT, REDO, FAIL, EXCP
	Call         NodeRef
	PrevInterface NodeRef

	// EXCP only
	ExceptionValue atom.Univ

	// COND, THEN, ELSE, NEG_ENTER, NEG_SUCCESS, NEG_FAILURE, SWITCH,
	// FIRST_DISJ, LATER_DISJ
	GoalPath string

	// COND, NEG_ENTER
	Status Status

	// THEN, ELSE
	Cond NodeRef

	// NEG_SUCCESS, NEG_FAILURE
	Neg NodeRef

	// LATER_DISJ
	FirstDisj NodeRef
}

// IsInterface reports whether n is a CALL/EXIT/REDO/FAIL/EXCP node, the
// events that open or close an invocation.
func (n *Node) IsInterface() bool {
	switch n.Kind {
	case KindCall, KindExit, KindRedo, KindFail, KindExcp:
		return true
	default:
		return false
	}
}
