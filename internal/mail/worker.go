// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"github.com/segmentio/kafka-go"

	"github.com/lingopal/lingopal/pkg/errutil"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Worker consumes email events and delivers them through a Sender.
//
// Offsets are committed after each delivery attempt, successful or not, so a
// message that cannot be delivered is logged and skipped rather than retried
// forever.
type Worker struct {
	reader messageReader
	sender Sender
	logger *slog.Logger
}

// NewWorker creates a Worker reading cfg.Topic as consumer group cfg.GroupID.
func NewWorker(cfg KafkaConfig, sender Sender, logger *slog.Logger) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.GroupID == "" {
		return nil, oops.Code("MAIL_KAFKA_CONFIG_INVALID").Errorf("kafka group id is required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newWorker(reader, sender, logger), nil
}

func newWorker(r messageReader, sender Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{reader: r, sender: sender, logger: logger}
}

// Run processes messages until ctx is cancelled, then closes the reader.
// It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		if err := w.reader.Close(); err != nil {
			w.logger.Warn("closing kafka reader failed", "error", err)
		}
	}()

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return oops.Code("MAIL_CONSUME_FAILED").With("operation", "fetch message").Wrap(err)
		}

		w.handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return oops.Code("MAIL_CONSUME_FAILED").
				With("operation", "commit message").
				With("offset", msg.Offset).
				Wrap(err)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg kafka.Message) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		w.logger.WarnContext(ctx, "dropping malformed email event",
			"offset", msg.Offset,
			"partition", msg.Partition,
			"error", err,
		)
		return
	}

	rendered, err := Compose(ev.Kind, ev.Email, ev.Link)
	if err != nil {
		errutil.LogError(w.logger, "dropping email event", err)
		return
	}
	if err := w.sender.Send(ctx, rendered); err != nil {
		errutil.LogError(w.logger, "email delivery failed", err)
		return
	}
	w.logger.DebugContext(ctx, "email delivered", "kind", string(ev.Kind), "offset", msg.Offset)
}
