package application

import (
	"context"
	"errors"

	"shopify-merchant-link/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes one or more webhook topics
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified webhook events to registered handlers
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler. Handlers run in registration order.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch runs every handler that accepts the event's topic and joins their errors.
// It reports whether any handler matched.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	var (
		matched bool
		errs    []error
	)
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		matched = true
		if err := h.Handle(ctx, event); err != nil {
			d.logger.Error().Err(err).Str("topic", event.Topic).Str("shop", event.Shop).Msg("Webhook handler failed")
			errs = append(errs, err)
		}
	}
	if !matched {
		d.logger.Debug().Str("topic", event.Topic).Msg("No handler registered for webhook topic")
	}
	return matched, errors.Join(errs...)
}
