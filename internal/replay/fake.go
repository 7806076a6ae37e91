// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package replay

import "context"

// Fake is an in-memory Mechanism for tests: it records every request it
// receives and returns a scripted Result/error pair in FIFO order,
// falling back to a plain OK_DIRECT once the script is exhausted.
type Fake struct {
	Requests []Request
	Gotos    []int64

	script   []scriptedResult
	gotoAddr JumpAddr
	gotoErr  error
}

type scriptedResult struct {
	res Result
	err error
}

// NewFake builds an empty Fake replay mechanism.
func NewFake() *Fake {
	return &Fake{}
}

// ScriptRetry queues one (Result, error) pair to be returned by the next
// call to Retry.
func (f *Fake) ScriptRetry(res Result, err error) {
	f.script = append(f.script, scriptedResult{res: res, err: err})
}

// ScriptGoto sets the (JumpAddr, error) returned by every call to
// GotoEvent.
func (f *Fake) ScriptGoto(addr JumpAddr, err error) {
	f.gotoAddr, f.gotoErr = addr, err
}

func (f *Fake) Retry(_ context.Context, req Request) (Result, error) {
	f.Requests = append(f.Requests, req)

	if len(f.script) == 0 {
		return Result{Status: OKDirect}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.res, next.err
}

func (f *Fake) GotoEvent(_ context.Context, eventNumber int64) (JumpAddr, error) {
	f.Gotos = append(f.Gotos, eventNumber)
	return f.gotoAddr, f.gotoErr
}

var _ Mechanism = (*Fake)(nil)
