// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics instruments the protocol core with prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts protocol operations. A nil *Metrics is valid and records
// nothing, so instrumentation stays optional for embedders.
type Metrics struct {
	identitiesRegistered prometheus.Counter
	plainSent            prometheus.Counter
	confidentialSent     prometheus.Counter
	computationsQueued   prometheus.Counter
	computationsSettled  prometheus.Counter
	computationsAborted  prometheus.Counter
	computationsPending  prometheus.Gauge
}

// New creates and registers the protocol metrics.
func New(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		identitiesRegistered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "identities_registered",
				Help: "Number of identities registered",
			},
		),
		plainSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plain_messages_sent",
				Help: "Number of plain messages stored",
			},
		),
		confidentialSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "confidential_messages_sent",
				Help: "Number of confidential messages stored",
			},
		),
		computationsQueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "computations_queued",
				Help: "Number of computations queued on the cluster",
			},
		),
		computationsSettled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "computations_settled",
				Help: "Number of computations settled with a verified result",
			},
		),
		computationsAborted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "computations_aborted",
				Help: "Number of computations aborted or failing verification",
			},
		),
		computationsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "computations_pending",
				Help: "Number of computations awaiting settlement",
			},
		),
	}
	registerer.MustRegister(m.identitiesRegistered)
	registerer.MustRegister(m.plainSent)
	registerer.MustRegister(m.confidentialSent)
	registerer.MustRegister(m.computationsQueued)
	registerer.MustRegister(m.computationsSettled)
	registerer.MustRegister(m.computationsAborted)
	registerer.MustRegister(m.computationsPending)

	return &m
}

// IncIdentitiesRegistered records an identity registration.
func (m *Metrics) IncIdentitiesRegistered() {
	if m != nil {
		m.identitiesRegistered.Inc()
	}
}

// IncPlainSent records a stored plain message.
func (m *Metrics) IncPlainSent() {
	if m != nil {
		m.plainSent.Inc()
	}
}

// IncConfidentialSent records a stored confidential message.
func (m *Metrics) IncConfidentialSent() {
	if m != nil {
		m.confidentialSent.Inc()
	}
}

// IncComputationsQueued records a queued computation.
func (m *Metrics) IncComputationsQueued() {
	if m != nil {
		m.computationsQueued.Inc()
		m.computationsPending.Inc()
	}
}

// IncComputationsSettled records a settled computation.
func (m *Metrics) IncComputationsSettled() {
	if m != nil {
		m.computationsSettled.Inc()
		m.computationsPending.Dec()
	}
}

// IncComputationsAborted records an aborted computation.
func (m *Metrics) IncComputationsAborted() {
	if m != nil {
		m.computationsAborted.Inc()
		m.computationsPending.Dec()
	}
}
