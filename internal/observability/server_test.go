// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// net/http keep-alive connections from the default client.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

func startServer(t *testing.T, ready ReadinessChecker) (*Server, *Metrics) {
	t.Helper()
	registry := NewRegistry()
	metrics := NewMetrics(registry)
	server := NewServer("127.0.0.1:0", registry, ready, nil)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
		http.DefaultClient.CloseIdleConnections()
	})
	return server, metrics
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server, metrics := startServer(t, nil)

	metrics.AuthEvent("login", "success")
	metrics.AuthEvent("login", "AUTH_INVALID_CREDENTIALS")
	metrics.AuthEvent("login", "AUTH_INVALID_CREDENTIALS")
	metrics.SessionCreated()
	metrics.HTTPRequest("/login", http.StatusUnauthorized)

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `lingopal_auth_events_total{operation="login",result="AUTH_INVALID_CREDENTIALS"} 2`)
	assert.Contains(t, body, `lingopal_auth_events_total{operation="login",result="success"} 1`)
	assert.Contains(t, body, "lingopal_sessions_created_total 1")
	assert.Contains(t, body, `lingopal_http_requests_total{route="/login",status="401"} 1`)
}

func TestServer_Liveness(t *testing.T) {
	server, _ := startServer(t, func(context.Context) error { return errors.New("db down") })

	status, body := get(t, "http://"+server.Addr()+"/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		ready  ReadinessChecker
		status int
		body   string
	}{
		{name: "nil checker", status: http.StatusOK, body: "ok"},
		{name: "ready", ready: func(context.Context) error { return nil }, status: http.StatusOK, body: "ok"},
		{
			name:   "not ready",
			ready:  func(context.Context) error { return errors.New("db down") },
			status: http.StatusServiceUnavailable,
			body:   "not ready",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := startServer(t, tt.ready)
			status, body := get(t, "http://"+server.Addr()+"/healthz/readiness")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, strings.TrimSpace(body))
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server, _ := startServer(t, nil)
	_, err := server.Start()
	require.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", NewRegistry(), nil, nil)
	require.NoError(t, server.Stop(context.Background()))
	assert.Empty(t, server.Addr())
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", NewRegistry(), nil, nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	defer func() { _ = server.Stop(context.Background()) }()

	_ = server.listener.Close()

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for serve error")
	}
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", NewRegistry(), nil, nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	require.NoError(t, server.Stop(context.Background()))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}
}
