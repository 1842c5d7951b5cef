package events

import (
	"context"
	"log/slog"
)

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// Handler consumes decoded envelopes. notify.Dispatcher implements it.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// Emit builds an envelope around data and publishes it.
func Emit(ctx context.Context, p Publisher, eventType, partitionKey string, data any) error {
	_, body, err := NewEnvelope(eventType, data)
	if err != nil {
		return err
	}
	return p.Publish(ctx, eventType, body, partitionKey)
}

// InlinePublisher delivers to handler in the caller's goroutine. Used when no broker is configured.
type InlinePublisher struct {
	handler Handler
	logger  *slog.Logger
}

func NewInlinePublisher(handler Handler, logger *slog.Logger) *InlinePublisher {
	return &InlinePublisher{handler: handler, logger: logger}
}

func (p *InlinePublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	if err := p.handler.Handle(ctx, env); err != nil {
		p.logger.WarnContext(ctx, "inline event handling failed",
			"module", "events.inline",
			"operation", "publish",
			"outcome", "failure",
			"event_type", eventType,
			"partition_key", partitionKey,
			"error", err,
		)
		return err
	}
	return nil
}
