package ports

import (
	"context"
	"time"

	"shopify-merchant-link/internal/domain"
)

// SessionRepository persists offline Shopify sessions.
// Implementations store the access token as an EncryptedCredential.
type SessionRepository interface {
	StoreSession(ctx context.Context, session *domain.PlatformSession) error
	LoadSession(ctx context.Context, id string) (*domain.PlatformSession, error)
	DeleteSession(ctx context.Context, id string) error
}

// WebhookLog records verified webhook deliveries
type WebhookLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// CorrelationStore maps an in-flight OAuth session key to the merchant that started it
type CorrelationStore interface {
	// Put upserts the record and (re)sets its expiry
	Put(ctx context.Context, sessionKey, merchantID string, ttl time.Duration) error
	// Get reads the merchant id without touching the expiry
	Get(ctx context.Context, sessionKey string) (merchantID string, found bool, err error)
	// Delete is idempotent
	Delete(ctx context.Context, sessionKey string) error
	// Consume atomically reads and deletes the record
	Consume(ctx context.Context, sessionKey string) (merchantID string, found bool, err error)
}

// EncryptionService encrypts secrets at rest
type EncryptionService interface {
	Encrypt(plaintext string) (domain.EncryptedCredential, error)
	Decrypt(encoded domain.EncryptedCredential) (string, error)
}

// StoreCredentials converts store access tokens between their stored and usable forms
type StoreCredentials interface {
	EncryptToken(token string) (domain.EncryptedCredential, error)
	SessionForStore(store *domain.MerchantStore) (*domain.PlatformSession, error)
	// ValidateToken reports false only when Shopify rejects the token
	ValidateToken(ctx context.Context, client ShopifyClient, session *domain.PlatformSession) bool
}
