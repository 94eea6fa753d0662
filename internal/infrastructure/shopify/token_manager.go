package shopify

import (
	"context"
	"fmt"
	"strings"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager moves access tokens between their encrypted and usable forms
type TokenManager struct {
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

var _ ports.StoreCredentials = (*TokenManager)(nil)

// NewTokenManager creates a new token manager
func NewTokenManager(encryptionSvc ports.EncryptionService, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		encryptionSvc: encryptionSvc,
		logger:        logger,
	}
}

// EncryptToken encrypts an access token before storage
func (tm *TokenManager) EncryptToken(token string) (domain.EncryptedCredential, error) {
	if token == "" {
		return "", fmt.Errorf("%w: token cannot be empty", domain.ErrValidation)
	}
	return tm.encryptionSvc.Encrypt(token)
}

// DecryptToken decrypts an access token after retrieval
func (tm *TokenManager) DecryptToken(encryptedToken domain.EncryptedCredential) (string, error) {
	if encryptedToken == "" {
		return "", fmt.Errorf("%w: encrypted token cannot be empty", domain.ErrDecryption)
	}
	return tm.encryptionSvc.Decrypt(encryptedToken)
}

// SessionForStore decrypts a connected store's credential and rebuilds an
// offline session for the duration of a single call chain.
func (tm *TokenManager) SessionForStore(store *domain.MerchantStore) (*domain.PlatformSession, error) {
	if store == nil || store.ShopDomain == "" {
		return nil, fmt.Errorf("%w: store is required", domain.ErrValidation)
	}
	token, err := tm.DecryptToken(store.AccessToken)
	if err != nil {
		tm.logger.Error().Err(err).Str("shop", store.ShopDomain).Msg("Failed to decrypt store access token")
		return nil, err
	}
	return domain.RehydrateSession(store.ShopDomain, token), nil
}

// ValidateToken checks if a session's token is still accepted by Shopify.
// Only authentication failures report the token as invalid.
func (tm *TokenManager) ValidateToken(ctx context.Context, client ports.ShopifyClient, session *domain.PlatformSession) bool {
	_, err := client.GetShop(ctx, session)
	if err == nil {
		return true
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid api key or access token") ||
		strings.Contains(errStr, "forbidden") {
		tm.logger.Warn().
			Str("shop", session.Shop).
			Msg("Token validation failed: token is invalid or revoked")
		return false
	}
	tm.logger.Warn().
		Err(err).
		Str("shop", session.Shop).
		Msg("Token validation encountered an error (assuming token is valid)")
	return true
}
