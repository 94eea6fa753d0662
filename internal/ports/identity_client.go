package ports

import (
	"context"

	"shopify-merchant-link/internal/domain"
)

// ConnectStoreInput is the store registration sent to the identity service.
// AccessToken must already be an EncryptedCredential.
type ConnectStoreInput struct {
	Type        string `json:"type"`
	ShopDomain  string `json:"shopDomain"`
	AccessToken string `json:"accessToken"`
}

// LoginResult is returned by a successful identity-service login
type LoginResult struct {
	Token    string          `json:"token"`
	Merchant domain.Merchant `json:"merchant"`
}

// IdentityClient talks to the merchant identity (KYC) microservice
type IdentityClient interface {
	ConnectStore(ctx context.Context, merchantID string, input ConnectStoreInput) error
	GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error)
	// Login returns nil, nil on rejected credentials
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

