// Package metrics holds the prometheus counters exported by the session
// bootstrap and the realtime channel. A nil *Collector is valid and records
// nothing.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSuperseded = "superseded"
)

type Collector struct {
	bootstraps *prometheus.CounterVec
	reboots    *prometheus.CounterVec
	refreshes  *prometheus.CounterVec
}

// New registers the shelfkeeper counters on reg. A nil reg gets a private
// registry so repeated construction in one process never collides.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		bootstraps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfkeeper",
			Subsystem: "session",
			Name:      "bootstraps_total",
			Help:      "Login/register bootstraps by operation and outcome.",
		}, []string{"operation", "outcome", "kind"}),
		reboots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfkeeper",
			Subsystem: "realtime",
			Name:      "reboots_total",
			Help:      "Realtime channel reboots by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfkeeper",
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Session token refreshes by outcome.",
		}, []string{"outcome"}),
	}

	for _, col := range []prometheus.Collector{c.bootstraps, c.reboots, c.refreshes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Bootstrap counts one finished login or register. kind is empty on success.
func (c *Collector) Bootstrap(operation, outcome, kind string) {
	if c == nil {
		return
	}
	c.bootstraps.WithLabelValues(operation, outcome, kind).Inc()
}

func (c *Collector) Reboot(outcome string) {
	if c == nil {
		return
	}
	c.reboots.WithLabelValues(outcome).Inc()
}

func (c *Collector) Refresh(outcome string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

// Write gathers g and writes every family in the text exposition format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
