package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	sessions ports.SessionRepository
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, sessions ports.SessionRepository) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle drops the shop's offline session. Its token is revoked by Shopify on uninstall.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain, err := shopFromEvent(event)
	if err != nil {
		return err
	}

	if err := h.sessions.DeleteSession(ctx, domain.OfflineSessionID(shopDomain)); err != nil {
		return fmt.Errorf("failed to delete offline session: %w", err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("App uninstalled, offline session removed")
	return nil
}

// shopFromEvent prefers the shop header and falls back to the payload's domain fields
func shopFromEvent(event *domain.WebhookEvent) (string, error) {
	if event.Shop != "" {
		return event.Shop, nil
	}

	var shopData struct {
		Domain          string `json:"domain"`
		MyshopifyDomain string `json:"myshopify_domain"`
		ShopDomain      string `json:"shop_domain"`
	}
	if err := json.Unmarshal(event.Payload, &shopData); err != nil {
		return "", fmt.Errorf("failed to parse %s webhook payload: %w", event.Topic, err)
	}

	for _, candidate := range []string{shopData.MyshopifyDomain, shopData.ShopDomain, shopData.Domain} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s webhook has no shop domain", domain.ErrValidation, event.Topic)
}
