package application

import (
	"context"
	"fmt"
	"strings"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

const (
	// MerchantMetafieldNamespace and MerchantMetafieldKey name the shop metafield
	// the storefront extension reads the merchant id from.
	MerchantMetafieldNamespace = "crypto_payments_app"
	MerchantMetafieldKey       = "merchant_id"
)

// LinkResult describes a completed link
type LinkResult struct {
	MerchantID       string
	Shop             string
	MetafieldWritten bool
}

// AccountLinker attaches a Shopify store to a merchant identity
type AccountLinker struct {
	identity    ports.IdentityClient
	shopify     ports.ShopifyClient
	credentials ports.StoreCredentials
	metrics     ports.Metrics
	logger      zerolog.Logger
}

// NewAccountLinker creates a new account linker
func NewAccountLinker(
	identity ports.IdentityClient,
	shopify ports.ShopifyClient,
	credentials ports.StoreCredentials,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *AccountLinker {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &AccountLinker{
		identity:    identity,
		shopify:     shopify,
		credentials: credentials,
		metrics:     metrics,
		logger:      logger,
	}
}

// Link registers the encrypted access token with the identity service, then
// tags the shop with the merchant id. A metafield failure does not undo the link.
func (l *AccountLinker) Link(ctx context.Context, merchantID, shop, accessToken string) (LinkResult, error) {
	result := LinkResult{MerchantID: merchantID, Shop: shop}

	if strings.TrimSpace(merchantID) == "" {
		return result, fmt.Errorf("%w: merchant id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(shop) == "" {
		return result, fmt.Errorf("%w: shop is required", domain.ErrValidation)
	}

	encrypted, err := l.credentials.EncryptToken(accessToken)
	if err != nil {
		l.metrics.ObserveLink("failed")
		return result, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	err = l.identity.ConnectStore(ctx, merchantID, ports.ConnectStoreInput{
		Type:        domain.StoreTypeShopify,
		ShopDomain:  shop,
		AccessToken: encrypted,
	})
	if err != nil {
		l.metrics.ObserveLink("failed")
		l.logger.Error().Err(err).Str("merchantId", merchantID).Str("shop", shop).Msg("Failed to connect store")
		return result, fmt.Errorf("failed to connect store: %w", err)
	}

	session := domain.RehydrateSession(shop, accessToken)
	if err := l.shopify.SetShopMetafield(ctx, session, MerchantMetafieldNamespace, MerchantMetafieldKey, merchantID); err != nil {
		l.logger.Warn().Err(err).Str("merchantId", merchantID).Str("shop", shop).Msg("Failed to write merchant metafield")
	} else {
		result.MetafieldWritten = true
	}

	l.metrics.ObserveLink("linked")
	l.logger.Info().
		Str("merchantId", merchantID).
		Str("shop", shop).
		Bool("metafieldWritten", result.MetafieldWritten).
		Msg("Merchant linked to store")
	return result, nil
}
