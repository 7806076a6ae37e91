// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package store

// Reader is the read-only subset of Store the Contour Walker needs. It
// exists so internal/contour can be unit-tested against a hand-built
// fixture without depending on the rest of Store's mutating API.
type Reader interface {
	Get(ref NodeRef) *Node
	BumpVersion() uint64
}

var _ Reader = (*Store)(nil)
