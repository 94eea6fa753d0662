package shopify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// StateCookieName holds the OAuth nonce between begin and callback
const StateCookieName = "shopify_app_state"

type tokenExchangeFunc func(ctx context.Context, app goshopify.App, shop, code string) (string, error)

// OAuthProviderConfig configures the Shopify OAuth primitive
type OAuthProviderConfig struct {
	APIKey      string
	APISecret   string
	Scopes      []string
	RedirectURL string
	HTTPClient  *http.Client
}

// OAuthProvider implements the authorization-code grant for offline sessions
type OAuthProvider struct {
	app        goshopify.App
	httpClient *http.Client
	verifier   *SignatureVerifier
	exchange   tokenExchangeFunc
	logger     zerolog.Logger
}

var _ ports.OAuthProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates the OAuth primitive
func NewOAuthProvider(cfg OAuthProviderConfig, verifier *SignatureVerifier, logger zerolog.Logger) *OAuthProvider {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OAuthProvider{
		app: goshopify.App{
			ApiKey:      cfg.APIKey,
			ApiSecret:   cfg.APISecret,
			RedirectUrl: cfg.RedirectURL,
			Scope:       strings.Join(cfg.Scopes, ","),
		},
		httpClient: httpClient,
		verifier:   verifier,
		exchange:   exchangeWithClient(httpClient),
		logger:     logger,
	}
}

func exchangeWithClient(httpClient *http.Client) tokenExchangeFunc {
	return func(ctx context.Context, app goshopify.App, shop, code string) (string, error) {
		shopClient, err := goshopify.NewClient(app, shop, "", goshopify.WithHTTPClient(httpClient))
		if err != nil {
			return "", fmt.Errorf("failed to create client: %w", err)
		}
		app.Client = shopClient
		return app.GetAccessToken(ctx, shop, code)
	}
}

// Begin sets the state cookie and returns the authorization URL
func (p *OAuthProvider) Begin(ctx context.Context, w http.ResponseWriter, r *http.Request, shop string) (string, error) {
	shop, err := domain.NormalizeShopDomain(shop)
	if err != nil {
		return "", err
	}

	// Generate random state for CSRF protection
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	authURL, err := p.app.AuthorizeUrl(shop, state)
	if err != nil {
		return "", fmt.Errorf("failed to build authorization URL: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(domain.CorrelationTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	p.logger.Info().
		Str("shop", shop).
		Str("scopes", p.app.Scope).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

// Callback verifies the redirect signature and state, then exchanges the code
func (p *OAuthProvider) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (*domain.PlatformSession, error) {
	params, err := ParseOrderedQuery(r.URL.RawQuery)
	if err != nil {
		return nil, err
	}
	providedHMAC, ok := HMACParam(params)
	if !ok {
		return nil, fmt.Errorf("%w: missing hmac parameter", domain.ErrValidation)
	}
	if !p.verifier.VerifyQueryHMAC(params, providedHMAC) {
		return nil, fmt.Errorf("%w: callback hmac validation failed", domain.ErrSignature)
	}

	query := r.URL.Query()
	shop, err := domain.NormalizeShopDomain(query.Get("shop"))
	if err != nil {
		return nil, err
	}
	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing code parameter", domain.ErrValidation)
	}

	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != query.Get("state") {
		return nil, fmt.Errorf("%w: oauth state mismatch", domain.ErrSignature)
	}

	// State is single-use
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	accessToken, err := p.exchange(ctx, p.app, shop, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange token: %v", domain.ErrUpstream, err)
	}

	return &domain.PlatformSession{
		ID:          domain.OfflineSessionID(shop),
		Shop:        shop,
		State:       cookie.Value,
		Scope:       p.app.Scope,
		IsOnline:    false,
		AccessToken: accessToken,
	}, nil
}
