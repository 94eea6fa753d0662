package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// HandshakeState tracks one install through the OAuth flow
type HandshakeState string

const (
	StateUnauthenticated   HandshakeState = "unauthenticated"
	StateCorrelationStored HandshakeState = "correlation_stored"
	StateCallbackReceived  HandshakeState = "callback_received"
	StateLinked            HandshakeState = "linked"
	StateFailed            HandshakeState = "failed"
)

// HandshakeResult is what Begin and Callback report back to the transport
type HandshakeResult struct {
	State       HandshakeState
	Shop        string
	MerchantID  string
	Linked      bool
	RedirectURL string
}

// Linker links a merchant to a store
type Linker interface {
	Link(ctx context.Context, merchantID, shop, accessToken string) (LinkResult, error)
}

// OAuthOrchestrator drives the install flow: it remembers which merchant
// started an install and links that merchant once the callback completes.
type OAuthOrchestrator struct {
	provider     ports.OAuthProvider
	tokens       ports.MerchantTokens
	correlations ports.CorrelationStore
	sessions     ports.SessionRepository
	linker       Linker
	metrics      ports.Metrics
	apiKey       string
	logger       zerolog.Logger
}

// NewOAuthOrchestrator creates a new orchestrator
func NewOAuthOrchestrator(
	provider ports.OAuthProvider,
	tokens ports.MerchantTokens,
	correlations ports.CorrelationStore,
	sessions ports.SessionRepository,
	linker Linker,
	metrics ports.Metrics,
	apiKey string,
	logger zerolog.Logger,
) *OAuthOrchestrator {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &OAuthOrchestrator{
		provider:     provider,
		tokens:       tokens,
		correlations: correlations,
		sessions:     sessions,
		linker:       linker,
		metrics:      metrics,
		apiKey:       apiKey,
		logger:       logger,
	}
}

// Begin starts an install for shop. When merchantToken identifies a merchant
// the correlation record is stored before the browser is sent to Shopify.
func (o *OAuthOrchestrator) Begin(ctx context.Context, rs *ResponseState, r *http.Request, shop, merchantToken string) (HandshakeResult, error) {
	result := HandshakeResult{State: StateUnauthenticated}

	normalized, err := domain.NormalizeShopDomain(shop)
	if err != nil {
		return o.failBegin(result, err)
	}
	result.Shop = normalized

	claims, hasMerchant := o.tokens.TryDecode(merchantToken)

	authURL, err := o.provider.Begin(ctx, rs, r, normalized)
	if err != nil {
		o.logger.Error().Err(err).Str("shop", normalized).Msg("Failed to begin OAuth")
		if !errors.Is(err, domain.ErrValidation) {
			err = fmt.Errorf("%w: begin oauth: %v", domain.ErrUpstream, err)
		}
		return o.failBegin(result, err)
	}

	if hasMerchant {
		record := domain.NewCorrelationRecord(domain.OfflineSessionID(normalized), claims.MerchantID, time.Now())
		if err := o.correlations.Put(ctx, record.SessionKey, record.MerchantID, record.TTL); err != nil {
			o.logger.Error().Err(err).Str("shop", normalized).Msg("Failed to store install correlation")
			// drop the provider's state cookie
			rs.Header().Del("Set-Cookie")
			return o.failBegin(result, fmt.Errorf("failed to store correlation: %w", err))
		}
		result.State = StateCorrelationStored
		result.MerchantID = record.MerchantID
		o.logger.Info().
			Str("shop", normalized).
			Str("merchantId", record.MerchantID).
			Time("expiresAt", record.ExpiresAt()).
			Msg("Stored install correlation")
	}

	if err := rs.Redirect(r, authURL); err != nil {
		return o.failBegin(result, err)
	}
	result.RedirectURL = authURL
	o.metrics.ObserveHandshake("begin", string(result.State))
	return result, nil
}

// Callback completes an install: it validates the redirect through the
// provider, persists the offline session, consumes the correlation record and
// links the merchant when one is waiting.
func (o *OAuthOrchestrator) Callback(ctx context.Context, rs *ResponseState, r *http.Request) (HandshakeResult, error) {
	result := HandshakeResult{State: StateUnauthenticated}

	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		return o.failCallback(result, fmt.Errorf("%w: missing host parameter", domain.ErrValidation))
	}

	session, err := o.provider.Callback(ctx, rs, r)
	if err != nil {
		o.logger.Warn().Err(err).Msg("OAuth callback rejected")
		if !errors.Is(err, domain.ErrSignature) && !errors.Is(err, domain.ErrValidation) {
			err = fmt.Errorf("%w: oauth callback: %v", domain.ErrUpstream, err)
		}
		return o.failCallback(result, err)
	}
	result.State = StateCallbackReceived
	result.Shop = session.Shop

	if session.AccessToken == "" {
		return o.failCallback(result, fmt.Errorf("%w: callback produced no access token", domain.ErrValidation))
	}

	if err := o.sessions.StoreSession(ctx, session); err != nil {
		o.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to store offline session")
		return o.failCallback(result, fmt.Errorf("failed to store session: %w", err))
	}

	merchantID, found, err := o.correlations.Consume(ctx, session.ID)
	switch {
	case err != nil:
		o.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to read install correlation, continuing without link")
	case !found:
		o.logger.Info().Str("shop", session.Shop).Msg("No merchant correlated with install")
	default:
		result.MerchantID = merchantID
		if _, err := o.linker.Link(ctx, merchantID, session.Shop, session.AccessToken); err != nil {
			return o.failCallback(result, err)
		}
		result.Linked = true
	}

	redirectURL := fmt.Sprintf("https://%s/admin/apps/%s?host=%s", session.Shop, o.apiKey, url.QueryEscape(host))
	if err := rs.Redirect(r, redirectURL); err != nil {
		return o.failCallback(result, err)
	}
	result.State = StateLinked
	result.RedirectURL = redirectURL

	outcome := "unlinked"
	if result.Linked {
		outcome = "linked"
	}
	o.metrics.ObserveHandshake("callback", outcome)
	return result, nil
}

func (o *OAuthOrchestrator) failBegin(result HandshakeResult, err error) (HandshakeResult, error) {
	result.State = StateFailed
	o.metrics.ObserveHandshake("begin", string(StateFailed))
	return result, err
}

func (o *OAuthOrchestrator) failCallback(result HandshakeResult, err error) (HandshakeResult, error) {
	result.State = StateFailed
	o.metrics.ObserveHandshake("callback", string(StateFailed))
	return result, err
}
