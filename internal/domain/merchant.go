package domain

import "time"

// StoreTypeShopify is the store type registered with the identity service
const StoreTypeShopify = "shopify"

// Merchant is the identity-service view of a merchant. Only the id is owned here.
type Merchant struct {
	ID     string          `json:"_id"`
	Email  string          `json:"email,omitempty"`
	Name   string          `json:"name,omitempty"`
	Stores []MerchantStore `json:"stores,omitempty"`
}

// MerchantStore is a store connected to a merchant. AccessToken holds an EncryptedCredential.
type MerchantStore struct {
	Type        string `json:"type"`
	ShopDomain  string `json:"shopDomain"`
	AccessToken string `json:"accessToken"`
}

// ShopifyStore returns the first connected Shopify store, if any
func (m *Merchant) ShopifyStore() (*MerchantStore, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Stores {
		if m.Stores[i].Type == StoreTypeShopify {
			return &m.Stores[i], true
		}
	}
	return nil, false
}

// MerchantClaims are the verified claims of an internal merchant token
type MerchantClaims struct {
	MerchantID string
	Email      string
	ExpiresAt  time.Time
}

// EncryptedCredential is the persisted form of an access token: iv_hex:auth_tag_hex:ciphertext_hex
type EncryptedCredential = string
