// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package frontend defines the boundary with the diagnosis front end:
// a single typed request carrying the completed EDT
// fragment and the prior persistent/browser state, answered by one of
// five response variants. The actual diagnosis UI (console, GUI, or a
// remote tool) is out of scope; this package is the seam plus an
// in-memory fake for tests.
package frontend

import (
	"context"
	"fmt"

	"github.com/wangp/decldbg/internal/store"
)

// ResponseKind tags which of the five diagnose() outcomes a Response
// carries.
type ResponseKind uint8

const (
	BugFound ResponseKind = iota
	SymptomFound
	NoBugFound
	RequireSubtree
	RequireSupertree
)

func (k ResponseKind) String() string {
	switch k {
	case BugFound:
		return "bug_found"
	case SymptomFound:
		return "symptom_found"
	case NoBugFound:
		return "no_bug_found"
	case RequireSubtree:
		return "require_subtree"
	case RequireSupertree:
		return "require_supertree"
	default:
		return "unknown"
	}
}

// IOActionMapCache describes the cached [start, end) interval of
// I/O-counter values the front end already has warm. The cache is valid
// iff the new [start, end) lies inside the previous one.
type IOActionMapCache struct {
	Start uint64
	End   uint64
}

// Contains reports whether the interval [start, end) lies inside c,
// i.e. the cache described by c can be reused without refetching.
func (c IOActionMapCache) Contains(start, end uint64) bool {
	return start >= c.Start && end <= c.End
}

// PersistentState and BrowserState are opaque blobs the front end reads
// and writes; the back end only threads them through unmodified between
// calls.
type PersistentState []byte
type BrowserState []byte

// Request is the single typed call into the front end.
type Request struct {
	StoreVersion      uint64
	Root              store.NodeRef
	UseOldIOMap       bool
	IOStart, IOEnd    uint64
	PersistentStateIn PersistentState
}

// Response is the front end's answer. Only the fields relevant to Kind
// are meaningful; the rest are zero.
type Response struct {
	Kind ResponseKind

	// BugFound / SymptomFound
	Event int64

	// RequireSubtree / RequireSupertree
	FinalEvent    int64
	TopmostSeqno  int64
	CallPreceding store.NodeRef // RequireSubtree only

	PersistentStateOut PersistentState
	BrowserStateOut    BrowserState
}

// Diagnoser is the interface the Session Controller programs against.
type Diagnoser interface {
	Diagnose(ctx context.Context, req Request, browserIn BrowserState) (Response, error)
}

// ErrUnknownResponse is raised if a Diagnoser returns a ResponseKind
// this package doesn't recognize: a protocol violation, not recoverable.
var ErrUnknownResponse = fmt.Errorf("frontend: unknown response kind")

// Validate checks that r.Kind is one of the five known variants.
func (r Response) Validate() error {
	switch r.Kind {
	case BugFound, SymptomFound, NoBugFound, RequireSubtree, RequireSupertree:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownResponse, r.Kind)
	}
}
