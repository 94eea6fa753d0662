package domain

import (
	"strings"
	"time"
)

// CorrelationTTL is how long an install attempt may take between begin and callback
const CorrelationTTL = 300 * time.Second

// SessionStateNeverUsed marks a session rebuilt from persisted credentials
const SessionStateNeverUsed = "never_used"

// PlatformSession represents an offline Shopify session produced by the OAuth callback
type PlatformSession struct {
	ID          string `json:"id" bson:"_id"`
	Shop        string `json:"shop" bson:"shop"`
	State       string `json:"state" bson:"state"`
	Scope       string `json:"scope" bson:"scope"`
	IsOnline    bool   `json:"is_online" bson:"is_online"`
	AccessToken string `json:"-" bson:"access_token"`
}

// CorrelationRecord links an in-flight OAuth install to the merchant who started it
type CorrelationRecord struct {
	SessionKey string        `json:"session_key"`
	MerchantID string        `json:"merchant_id"`
	CreatedAt  time.Time     `json:"created_at"`
	TTL        time.Duration `json:"ttl"`
}

// NewCorrelationRecord builds a record with the fixed correlation TTL
func NewCorrelationRecord(sessionKey, merchantID string, now time.Time) CorrelationRecord {
	return CorrelationRecord{
		SessionKey: sessionKey,
		MerchantID: merchantID,
		CreatedAt:  now.UTC(),
		TTL:        CorrelationTTL,
	}
}

// ExpiresAt is when the store drops the record
func (c CorrelationRecord) ExpiresAt() time.Time {
	return c.CreatedAt.Add(c.TTL)
}

// OfflineSessionID returns the offline session id Shopify uses for a shop.
// It doubles as the correlation session key.
func OfflineSessionID(shop string) string {
	return "offline_" + strings.ToLower(strings.TrimSpace(shop))
}

// RehydrateSession builds a session from a shop domain and a decrypted access token
func RehydrateSession(shop, accessToken string) *PlatformSession {
	return &PlatformSession{
		ID:          OfflineSessionID(shop),
		Shop:        shop,
		State:       SessionStateNeverUsed,
		IsOnline:    false,
		AccessToken: accessToken,
	}
}
