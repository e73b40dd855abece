// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Metrics holds the LingoPal application metrics. It implements auth.Recorder.
type Metrics struct {
	AuthEventsTotal      *prometheus.CounterVec
	SessionsCreatedTotal prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lingopal_auth_events_total",
				Help: "Auth service operations by operation and result code",
			},
			[]string{"operation", "result"},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lingopal_sessions_created_total",
				Help: "Sessions created by successful logins",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lingopal_http_requests_total",
				Help: "HTTP requests by route pattern and status code",
			},
			[]string{"route", "status"},
		),
	}

	reg.MustRegister(m.AuthEventsTotal, m.SessionsCreatedTotal, m.HTTPRequestsTotal)
	return m
}

// AuthEvent counts one auth operation outcome.
func (m *Metrics) AuthEvent(operation, result string) {
	m.AuthEventsTotal.WithLabelValues(operation, result).Inc()
}

// SessionCreated counts one new session.
func (m *Metrics) SessionCreated() {
	m.SessionsCreatedTotal.Inc()
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(route string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
