package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shopify-merchant-link/internal/application"
	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/infrastructure/middleware"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// Webhook header names. The short aliases are accepted from internal relays.
const (
	headerWebhookHMAC      = "X-Shopify-Hmac-Sha256"
	headerWebhookHMACAlias = "X-Signature"
	headerTopic            = "X-Shopify-Topic"
	headerTopicAlias       = "X-Topic"
	headerShopDomain       = "X-Shopify-Shop-Domain"
	headerShopDomainAlias  = "X-Shop-Domain"
	headerWebhookID        = "X-Shopify-Webhook-Id"
)

// OAuthFlow runs the install handshake
type OAuthFlow interface {
	Begin(ctx context.Context, rs *application.ResponseState, r *http.Request, shop, merchantToken string) (application.HandshakeResult, error)
	Callback(ctx context.Context, rs *application.ResponseState, r *http.Request) (application.HandshakeResult, error)
}

// MerchantLogin signs a merchant in and links the current shop
type MerchantLogin interface {
	LoginAndLink(ctx context.Context, session *domain.PlatformSession, email, password string) (*ports.LoginResult, error)
}

// StoreSync fetches a merchant's store products
type StoreSync interface {
	SyncProducts(ctx context.Context, merchantID string) (*application.SyncResult, error)
}

// WebhookReceiver authenticates and processes webhook deliveries
type WebhookReceiver interface {
	Receive(ctx context.Context, delivery application.WebhookDelivery) (*domain.WebhookEvent, error)
}

// Handlers holds the HTTP handlers of the service
type Handlers struct {
	oauth    OAuthFlow
	login    MerchantLogin
	store    StoreSync
	webhooks WebhookReceiver
	logger   zerolog.Logger
}

// NewHandlers creates the HTTP handlers
func NewHandlers(oauth OAuthFlow, login MerchantLogin, store StoreSync, webhooks WebhookReceiver, logger zerolog.Logger) *Handlers {
	return &Handlers{
		oauth:    oauth,
		login:    login,
		store:    store,
		webhooks: webhooks,
		logger:   logger,
	}
}

// Install starts the OAuth flow. An optional token query parameter carries the merchant JWT.
func (h *Handlers) Install(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Bad Request: Missing 'shop' query parameter."})
		return
	}

	rs := application.NewResponseState(w)
	result, err := h.oauth.Begin(r.Context(), rs, r, shop, r.URL.Query().Get("token"))
	if err != nil {
		writeError(rs, r, h.logger, err)
		return
	}
	h.logger.Info().
		Str("shop", result.Shop).
		Str("state", string(result.State)).
		Int("status", rs.Status()).
		Msg("OAuth install started")
}

// Callback completes the OAuth flow and redirects into the Shopify admin
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	rs := application.NewResponseState(w)
	result, err := h.oauth.Callback(r.Context(), rs, r)
	if err != nil {
		writeError(rs, r, h.logger, err)
		return
	}
	h.logger.Info().
		Str("shop", result.Shop).
		Bool("linked", result.Linked).
		Int("status", rs.Status()).
		Msg("OAuth install completed")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a merchant from the embedded admin and links the shop
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("%w: no active shop session", domain.ErrAuthentication))
		return
	}

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err))
		return
	}

	result, err := h.login.LoginAndLink(r.Context(), session, body.Email, body.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncStore returns the products of the authenticated merchant's store
func (h *Handlers) SyncStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.MerchantFromContext(r.Context())
	if !ok || claims.MerchantID == "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: merchant id missing from token", domain.ErrAuthentication))
		return
	}

	result, err := h.store.SyncProducts(r.Context(), claims.MerchantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  fmt.Sprintf("Successfully fetched %d products.", len(result.Products)),
		"products": result.Products,
	})
}

// Webhook receives Shopify webhooks. The body is read raw so the HMAC is
// computed over the exact bytes sent. Once verified the reply is always 200.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Request body too large"})
			return
		}
		writeError(w, r, h.logger, fmt.Errorf("%w: failed to read body: %v", domain.ErrValidation, err))
		return
	}

	_, err = h.webhooks.Receive(r.Context(), application.WebhookDelivery{
		RawBody:   payload,
		HMAC:      firstHeader(r, headerWebhookHMAC, headerWebhookHMACAlias),
		Topic:     firstHeader(r, headerTopic, headerTopicAlias),
		Shop:      firstHeader(r, headerShopDomain, headerShopDomainAlias),
		WebhookID: r.Header.Get(headerWebhookID),
	})
	if err != nil {
		if errors.Is(err, domain.ErrSignature) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Could not validate webhook"})
			return
		}
		h.logger.Error().Err(err).Msg("Webhook processing failed after verification")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return v
		}
	}
	return ""
}
