package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookVerifier checks the HMAC of a raw webhook body
type WebhookVerifier interface {
	VerifyWebhook(rawBody []byte, providedHMAC string) bool
}

// WebhookDelivery is an inbound webhook as read off the wire
type WebhookDelivery struct {
	RawBody   []byte
	HMAC      string
	Topic     string
	Shop      string
	WebhookID string
}

// WebhookService authenticates deliveries, records them and hands them to the dispatcher
type WebhookService struct {
	verifier   WebhookVerifier
	log        ports.WebhookLog
	dispatcher *WebhookDispatcher
	metrics    ports.Metrics
	logger     zerolog.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	verifier WebhookVerifier,
	log ports.WebhookLog,
	dispatcher *WebhookDispatcher,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *WebhookService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &WebhookService{
		verifier:   verifier,
		log:        log,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Receive verifies the delivery signature before anything else. Only a bad
// signature is reported as an error; logging and dispatch failures are
// recorded and swallowed so the sender sees an acknowledgement.
func (s *WebhookService) Receive(ctx context.Context, delivery WebhookDelivery) (*domain.WebhookEvent, error) {
	if delivery.HMAC == "" || !s.verifier.VerifyWebhook(delivery.RawBody, delivery.HMAC) {
		s.metrics.ObserveWebhook("unverified", "rejected")
		s.logger.Warn().Str("topic", delivery.Topic).Str("shop", delivery.Shop).Msg("Webhook signature verification failed")
		return nil, fmt.Errorf("%w: invalid webhook signature", domain.ErrSignature)
	}

	event := &domain.WebhookEvent{
		Topic:      delivery.Topic,
		Shop:       strings.ToLower(strings.TrimSpace(delivery.Shop)),
		WebhookID:  delivery.WebhookID,
		Payload:    delivery.RawBody,
		Verified:   true,
		ReceivedAt: time.Now().UTC(),
	}

	s.logger.Info().Str("topic", event.Topic).Str("shop", event.Shop).Msg("Received webhook")

	if err := s.log.LogWebhook(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("topic", event.Topic).Msg("Failed to log webhook event")
	}

	matched, err := s.dispatcher.Dispatch(ctx, event)
	switch {
	case err != nil:
		s.metrics.ObserveWebhook(event.Topic, "handler_failed")
	case matched:
		s.metrics.ObserveWebhook(event.Topic, "dispatched")
	default:
		s.metrics.ObserveWebhook(event.Topic, "ignored")
	}
	return event, nil
}
