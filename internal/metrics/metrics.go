// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package metrics exposes the back end's Prometheus collectors. It
// implements store.Observer so the Node Store's construction/version
// events are counted without the store package importing prometheus
// itself, and a small helper for the Filter/Classifier's rejection
// reasons.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wangp/decldbg/internal/filter"
	"github.com/wangp/decldbg/internal/store"
)

// Collectors bundles every metric the back end registers. A nil
// *Collectors is safe to use: every method is a no-op, so callers that
// don't want metrics don't need a build tag or a conditional.
type Collectors struct {
	nodesConstructed *prometheus.CounterVec
	eventsFiltered   *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	depthLimitHits   prometheus.Counter
	storeVersion     prometheus.Gauge
}

// New creates and registers every collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		nodesConstructed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decldbg_nodes_constructed_total",
			Help: "EDT nodes constructed, by node kind.",
		}, []string{"kind"}),
		eventsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decldbg_events_filtered_total",
			Help: "Trace events rejected by the filter, by reason.",
		}, []string{"reason"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "decldbg_sessions_started_total",
			Help: "Declarative debugging sessions started.",
		}),
		depthLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "decldbg_depth_limit_hits_total",
			Help: "Events rejected because they fell past the current depth limit.",
		}),
		storeVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decldbg_store_version",
			Help: "Current store_version of the active session's Node Store.",
		}),
	}

	reg.MustRegister(c.nodesConstructed, c.eventsFiltered, c.sessionsStarted, c.depthLimitHits, c.storeVersion)
	return c
}

// NodeConstructed implements store.Observer.
func (c *Collectors) NodeConstructed(kind store.Kind) {
	if c == nil {
		return
	}
	c.nodesConstructed.WithLabelValues(kind.String()).Inc()
}

// VersionBumped implements store.Observer.
func (c *Collectors) VersionBumped(version uint64) {
	if c == nil {
		return
	}
	c.storeVersion.Set(float64(version))
}

// ObserveOutcome records one Filter/Classifier verdict.
func (c *Collectors) ObserveOutcome(o filter.Outcome) {
	if c == nil {
		return
	}
	if o.Reason != filter.Accepted {
		c.eventsFiltered.WithLabelValues(o.Reason.String()).Inc()
	}
	if o.Reason == filter.RejectedDepth {
		c.depthLimitHits.Inc()
	}
}

// SessionStarted records one Session Controller start().
func (c *Collectors) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsStarted.Inc()
}

var _ store.Observer = (*Collectors)(nil)
