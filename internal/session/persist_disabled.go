// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

//go:build !persist

package session

import (
	"github.com/wangp/decldbg/internal/config"
)

// newPersistBackend returns a backend that keeps state in process
// memory only, for builds without the persist tag.
func newPersistBackend(_ *config.Config) (persistBackend, error) {
	return noopPersistBackend{}, nil
}
