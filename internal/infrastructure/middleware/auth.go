package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	merchantClaimsKey  contextKey = "merchant_claims"
	platformSessionKey contextKey = "platform_session"
)

// MerchantFromContext returns the claims set by MerchantAuth
func MerchantFromContext(ctx context.Context) (*domain.MerchantClaims, bool) {
	claims, ok := ctx.Value(merchantClaimsKey).(*domain.MerchantClaims)
	return claims, ok && claims != nil
}

// SessionFromContext returns the offline session set by ShopifySession
func SessionFromContext(ctx context.Context) (*domain.PlatformSession, bool) {
	session, ok := ctx.Value(platformSessionKey).(*domain.PlatformSession)
	return session, ok && session != nil
}

// WithMerchant stores merchant claims on ctx
func WithMerchant(ctx context.Context, claims *domain.MerchantClaims) context.Context {
	return context.WithValue(ctx, merchantClaimsKey, claims)
}

// WithSession stores an offline session on ctx
func WithSession(ctx context.Context, session *domain.PlatformSession) context.Context {
	return context.WithValue(ctx, platformSessionKey, session)
}

// MerchantAuth requires a valid internal merchant JWT in the Authorization header
func MerchantAuth(tokens ports.MerchantTokens, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			claims, err := tokens.Verify(token)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Merchant token rejected")
				unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithMerchant(r.Context(), claims)))
		})
	}
}

// ShopifySession requires an App Bridge session token and loads the shop's
// offline session. Any failure is a 401.
func ShopifySession(tokens ports.SessionTokens, sessions ports.SessionRepository, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			shop, err := tokens.Decode(token)
			if err != nil {
				logger.Warn().Err(err).Msg("Session token rejected")
				unauthorized(w, "invalid session token")
				return
			}
			session, err := sessions.LoadSession(r.Context(), domain.OfflineSessionID(shop))
			if err != nil {
				logger.Error().Err(err).Str("shop", shop).Msg("Failed to load offline session")
				unauthorized(w, "no session for shop")
				return
			}
			if session == nil {
				logger.Warn().Str("shop", shop).Msg("No offline session for shop")
				unauthorized(w, "no session for shop")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized: " + message})
}
