package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// Mandatory privacy topics every public Shopify app must accept
const (
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
)

// ComplianceHandler handles the privacy compliance webhooks. This service
// keeps no customer data, so customer topics are acknowledged and logged;
// shop/redact removes whatever is still held for the shop.
type ComplianceHandler struct {
	logger   zerolog.Logger
	sessions ports.SessionRepository
}

// NewComplianceHandler creates a new compliance webhook handler
func NewComplianceHandler(logger zerolog.Logger, sessions ports.SessionRepository) *ComplianceHandler {
	return &ComplianceHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ComplianceHandler) CanHandle(topic string) bool {
	return topic == TopicCustomersDataRequest ||
		topic == TopicCustomersRedact ||
		topic == TopicShopRedact
}

// Handle processes a compliance webhook event
func (h *ComplianceHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Topic {
	case TopicShopRedact:
		shopDomain, err := shopFromEvent(event)
		if err != nil {
			return err
		}
		if err := h.sessions.DeleteSession(ctx, domain.OfflineSessionID(shopDomain)); err != nil {
			return fmt.Errorf("failed to redact shop session: %w", err)
		}
		h.logger.Info().Str("shop", shopDomain).Msg("Shop data redacted")

	default:
		var request struct {
			Customer struct {
				ID int64 `json:"id"`
			} `json:"customer"`
		}
		if err := json.Unmarshal(event.Payload, &request); err != nil {
			return fmt.Errorf("failed to parse %s webhook payload: %w", event.Topic, err)
		}
		h.logger.Info().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Int64("customerId", request.Customer.ID).
			Msg("Customer privacy request acknowledged, no customer data held")
	}
	return nil
}
