// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package replay defines the Back end → Replay boundary:
// asking the traced program to re-execute up to a target point so the
// filter can observe its events again, or to jump directly to a chosen
// event. The real replay mechanism lives inside the runtime being
// debugged and is out of scope; this package is the thin seam the rest
// of the back end programs against, plus an in-memory fake for tests.
package replay

import (
	"context"
	"errors"
	"fmt"
)

// Status is the replay mechanism's verdict. Only OK_DIRECT is accepted;
// anything else fails the session.
type Status uint8

const (
	OKDirect Status = iota
	StatusError
	Other
)

func (s Status) String() string {
	switch s {
	case OKDirect:
		return "OK_DIRECT"
	case StatusError:
		return "ERROR"
	case Other:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// IOPolicy selects how I/O actions are replayed; the runtime decides
// what each value means, this package only threads it through.
type IOPolicy uint8

const (
	IOPolicyDefault IOPolicy = iota
	IOPolicyTabled
	IOPolicyUntabled
)

// ErrReplayFailed wraps any non-OK_DIRECT replay outcome.
var ErrReplayFailed = errors.New("replay: mechanism did not return OK_DIRECT")

// JumpAddr is an opaque resume point the traced program's execution
// engine understands; the back end never inspects it, only forwards it.
type JumpAddr uint64

// Request is one call into the replay mechanism.
type Request struct {
	EventNumber    int64
	TargetLevelsUp int64
	IOPolicy       IOPolicy
	AllIOTabled    bool
	IOIn           uint64
}

// Result is the replay mechanism's response.
type Result struct {
	Status   Status
	IOOut    uint64
	JumpAddr JumpAddr
}

// Mechanism is the interface the Session Controller programs against:
// Retry rewinds the traced program, GotoEvent arms a jump to a chosen
// event on the next run.
type Mechanism interface {
	Retry(ctx context.Context, req Request) (Result, error)
	GotoEvent(ctx context.Context, eventNumber int64) (JumpAddr, error)
}

// Retry is a convenience wrapper turning a non-OK_DIRECT result into
// ErrReplayFailed.
func Retry(ctx context.Context, m Mechanism, req Request) (JumpAddr, error) {
	res, err := m.Retry(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("replay: retry: %w", err)
	}
	if res.Status != OKDirect {
		return 0, fmt.Errorf("%w: got %s", ErrReplayFailed, res.Status)
	}
	return res.JumpAddr, nil
}
