package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ConsumerWorker polls a Consumer and hands each envelope to a Handler.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  Handler
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler Handler, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{logger: logger, consumer: consumer, handler: handler, interval: interval}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type partitionKey struct {
	topic     string
	partition int
}

// ProcessOnce drains one batch and returns how many envelopes were handled.
// A message is committed only after it was handled (or dropped as undecodable).
// Once a message fails on a partition nothing after it on that partition is
// committed, so the failed one is redelivered after a restart or rebalance.
func (w *ConsumerWorker) ProcessOnce(ctx context.Context) (int, error) {
	msgs, err := w.consumer.Poll(ctx, 50)
	handled := 0
	blocked := map[partitionKey]bool{}
	commit := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		key := partitionKey{topic: msg.Topic, partition: msg.Partition}
		env, decodeErr := DecodeEnvelope(msg.Payload)
		if decodeErr != nil {
			w.logger.WarnContext(ctx, "dropping undecodable message",
				"module", "events.consumer_worker", "topic", msg.Topic, "offset", msg.Offset, "error", decodeErr)
			if !blocked[key] {
				commit = append(commit, msg)
			}
			continue
		}
		if handleErr := w.handler.Handle(ctx, env); handleErr != nil {
			w.logger.WarnContext(ctx, "failed to handle event",
				"module", "events.consumer_worker", "event_type", env.Type, "offset", msg.Offset, "error", handleErr)
			blocked[key] = true
			continue
		}
		handled++
		if !blocked[key] {
			commit = append(commit, msg)
		}
	}
	if commitErr := w.consumer.Commit(ctx, commit...); commitErr != nil {
		err = errors.Join(err, commitErr)
	}
	return handled, err
}
