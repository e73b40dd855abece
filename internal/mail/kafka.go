// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package mail

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds broker settings shared by the dispatcher and the worker.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

// Validate checks that brokers and topic are set.
func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return oops.Code("MAIL_KAFKA_CONFIG_INVALID").Errorf("at least one kafka broker is required")
	}
	if c.Topic == "" {
		return oops.Code("MAIL_KAFKA_CONFIG_INVALID").Errorf("kafka topic is required")
	}
	return nil
}

// Event is the payload published for each account email.
type Event struct {
	Kind  Kind   `json:"kind"`
	Email string `json:"email"`
	Link  string `json:"link"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes account emails as events for Worker to deliver.
type KafkaDispatcher struct {
	links  Links
	writer messageWriter
	now    func() time.Time
}

// NewKafkaDispatcher creates a dispatcher publishing to cfg.Topic.
func NewKafkaDispatcher(links Links, cfg KafkaConfig) (*KafkaDispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newKafkaDispatcher(links, &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}), nil
}

func newKafkaDispatcher(links Links, w messageWriter) *KafkaDispatcher {
	return &KafkaDispatcher{links: links, writer: w, now: time.Now}
}

// SendVerificationEmail publishes a verification event.
func (d *KafkaDispatcher) SendVerificationEmail(ctx context.Context, email, token string) error {
	return d.publish(ctx, Event{Kind: KindVerification, Email: email, Link: d.links.Verify(token)})
}

// SendPasswordResetEmail publishes a password reset event.
func (d *KafkaDispatcher) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	return d.publish(ctx, Event{Kind: KindPasswordReset, Email: email, Link: d.links.Reset(token)})
}

// Close flushes and closes the underlying writer.
func (d *KafkaDispatcher) Close() error {
	if err := d.writer.Close(); err != nil {
		return oops.Code("MAIL_PUBLISH_FAILED").With("operation", "close writer").Wrap(err)
	}
	return nil
}

func (d *KafkaDispatcher) publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return oops.Code("MAIL_PUBLISH_FAILED").With("operation", "encode event").Wrap(err)
	}
	// Keyed by recipient so one user's emails stay ordered on a partition.
	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Email),
		Value: value,
		Time:  d.now(),
	})
	if err != nil {
		return oops.Code("MAIL_PUBLISH_FAILED").
			With("operation", "write message").
			With("kind", string(ev.Kind)).
			Wrap(err)
	}
	return nil
}

var _ Dispatcher = (*KafkaDispatcher)(nil)
