// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "invalid JSON: %s", buf.String())
	return entry
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "lingopal", Version: "1.0.0", Writer: &buf})

	logger.Info("test message", "user", "alice")

	entry := decode(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "lingopal", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, "alice", entry["user"])
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "request_id")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "lingopal", Format: "text", Writer: &buf})

	logger.Info("test message")

	assert.Contains(t, buf.String(), "msg=\"test message\"")
	assert.Contains(t, buf.String(), "service=lingopal")
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelWarn, Writer: &buf})

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "lingopal", Writer: &buf})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.With("component", "auth").InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
	assert.Equal(t, "auth", entry["component"])
}

func TestHandler_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf})

	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "handled")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := decode(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
}
