// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

//go:build persist

package session

import (
	"context"
	"fmt"

	r "github.com/redis/go-redis/v9"

	"github.com/wangp/decldbg/internal/config"
	"github.com/wangp/decldbg/internal/frontend"
)

// redisPersistBackend mirrors the front end's persistent state to Redis
// so it survives a debugger-process restart. Browser state and the
// Controller's trust list are not stored. Selected by the persist build
// tag, paired with persist_disabled.go's no-op stub.
type redisPersistBackend struct {
	client *r.Client
}

func newPersistBackend(cfg *config.Config) (persistBackend, error) {
	if cfg.RedisAddr == "" {
		return noopPersistBackend{}, nil
	}
	client := r.NewClient(&r.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	return &redisPersistBackend{client: client}, nil
}

func (b *redisPersistBackend) Start(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session: pinging redis: %w", err)
	}
	return nil
}

func (b *redisPersistBackend) Stop(ctx context.Context) error {
	return b.client.Close()
}

func (b *redisPersistBackend) LoadPersistentState(ctx context.Context, key string) (frontend.PersistentState, error) {
	val, err := b.client.Get(ctx, persistKey(key)).Bytes()
	if err == r.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: loading persistent state: %w", err)
	}
	return frontend.PersistentState(val), nil
}

func (b *redisPersistBackend) SavePersistentState(ctx context.Context, key string, state frontend.PersistentState) error {
	if err := b.client.Set(ctx, persistKey(key), []byte(state), 0).Err(); err != nil {
		return fmt.Errorf("session: saving persistent state: %w", err)
	}
	return nil
}

func persistKey(key string) string {
	return "decldbg:persistent_state:" + key
}
