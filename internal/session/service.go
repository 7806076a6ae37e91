// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wangp/decldbg/internal/config"
	"github.com/wangp/decldbg/internal/frontend"
	"github.com/wangp/decldbg/internal/metrics"
	"github.com/wangp/decldbg/internal/replay"
)

// Service is the long-lived process wrapper around a Controller: it owns
// the optional metrics HTTP server and the optional persistence backend,
// starting and stopping them as a unit.
type Service struct {
	Controller *Controller

	cfg *config.Config
	log *logrus.Entry

	registry *prometheus.Registry
	metrics  *metrics.Collectors

	httpServer *http.Server
	wg         sync.WaitGroup

	persist persistBackend
}

// NewService builds a Service. replayMech and front are the Controller's
// collaborators; see New.
func NewService(cfg *config.Config, replayMech replay.Mechanism, front frontend.Diagnoser, log *logrus.Logger) (*Service, error) {
	if log == nil {
		log = logrus.New()
	}

	reg := prometheus.NewRegistry()
	col := metrics.New(reg)

	svc := &Service{
		cfg:      cfg,
		log:      log.WithField("component", "session.Service"),
		registry: reg,
		metrics:  col,
	}

	backend, err := newPersistBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("session: building persistence backend: %w", err)
	}
	svc.persist = backend

	svc.Controller = New(cfg, replayMech, front, col, log, nil)
	svc.Controller.persist = backend
	return svc, nil
}

// persistStateKey is the storage key for the front end's persistent
// state. The state (trust list, browser settings) outlives any one
// session, so it is not keyed by session ID.
const persistStateKey = "frontend"

// Start brings up the optional /metrics endpoint and the persistence
// backend. It never blocks.
func (s *Service) Start(ctx context.Context) error {
	if err := s.persist.Start(ctx); err != nil {
		return fmt.Errorf("session: starting persistence backend: %w", err)
	}

	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		s.httpServer = &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.WithError(err).Error("metrics server stopped unexpectedly")
			}
		}()
		s.log.WithField("addr", s.cfg.MetricsAddr).Info("metrics server started")
	}

	return nil
}

// Stop shuts down the metrics server and persistence backend, joining
// every background goroutine before returning.
func (s *Service) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("session: shutting down metrics server: %w", err)
		}
	}
	s.wg.Wait()

	s.Controller.ioCache.Stop()

	if err := s.persist.Stop(ctx); err != nil {
		return fmt.Errorf("session: stopping persistence backend: %w", err)
	}
	return nil
}

// persistBackend abstracts the optional Redis-backed persistence layer
// so Service works identically whether built with or without the
// persist build tag.
type persistBackend interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	LoadPersistentState(ctx context.Context, key string) (frontend.PersistentState, error)
	SavePersistentState(ctx context.Context, key string, state frontend.PersistentState) error
}

// noopPersistBackend keeps state in process memory only; it backs both
// the default (!persist) build and the persist build when no Redis
// address is configured.
type noopPersistBackend struct{}

func (noopPersistBackend) Start(context.Context) error { return nil }
func (noopPersistBackend) Stop(context.Context) error  { return nil }

func (noopPersistBackend) LoadPersistentState(context.Context, string) (frontend.PersistentState, error) {
	return nil, nil
}

func (noopPersistBackend) SavePersistentState(context.Context, string, frontend.PersistentState) error {
	return nil
}
