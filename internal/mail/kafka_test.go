// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingopal/lingopal/pkg/errutil"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaConfig_Validate(t *testing.T) {
	errutil.AssertErrorCode(t, KafkaConfig{Topic: "mail"}.Validate(), "MAIL_KAFKA_CONFIG_INVALID")
	errutil.AssertErrorCode(t, KafkaConfig{Brokers: []string{"k:9092"}}.Validate(), "MAIL_KAFKA_CONFIG_INVALID")
	require.NoError(t, KafkaConfig{Brokers: []string{"k:9092"}, Topic: "mail"}.Validate())
}

func TestKafkaDispatcher_PublishesLinks(t *testing.T) {
	links := testLinks(t)
	w := &fakeWriter{}
	d := newKafkaDispatcher(links, w)
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return stamp }

	ctx := context.Background()
	require.NoError(t, d.SendVerificationEmail(ctx, "alice@example.com", "v-tok"))
	require.NoError(t, d.SendPasswordResetEmail(ctx, "alice@example.com", "r-tok"))
	require.Len(t, w.msgs, 2)

	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, Event{Kind: KindVerification, Email: "alice@example.com", Link: links.Verify("v-tok")}, ev)
	assert.Equal(t, []byte("alice@example.com"), w.msgs[0].Key)
	assert.Equal(t, stamp, w.msgs[0].Time)

	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &ev))
	assert.Equal(t, KindPasswordReset, ev.Kind)
	assert.Equal(t, links.Reset("r-tok"), ev.Link)

	require.NoError(t, d.Close())
	assert.True(t, w.closed)
}

func TestKafkaDispatcher_WriteFailure(t *testing.T) {
	d := newKafkaDispatcher(testLinks(t), &fakeWriter{err: errors.New("leader not available")})
	err := d.SendVerificationEmail(context.Background(), "alice@example.com", "tok")
	errutil.AssertErrorCode(t, err, "MAIL_PUBLISH_FAILED")
	errutil.AssertErrorContext(t, err, "kind", "verification")
}
