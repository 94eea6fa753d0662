package ports

import "shopify-merchant-link/internal/domain"

// MerchantTokens verifies internal merchant JWTs
type MerchantTokens interface {
	Verify(token string) (*domain.MerchantClaims, error)
	// TryDecode never fails; an unusable token reports false
	TryDecode(token string) (*domain.MerchantClaims, bool)
}

// SessionTokens decodes App Bridge session tokens into a shop domain
type SessionTokens interface {
	Decode(token string) (string, error)
}
