package application

import (
	"context"
	"fmt"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// SyncResult is the outcome of a store sync
type SyncResult struct {
	Shop     string
	Products []goshopify.Product
}

// StoreService reads a merchant's connected store through its stored credential
type StoreService struct {
	identity    ports.IdentityClient
	shopify     ports.ShopifyClient
	credentials ports.StoreCredentials
	logger      zerolog.Logger
}

// NewStoreService creates a new store service
func NewStoreService(
	identity ports.IdentityClient,
	shopify ports.ShopifyClient,
	credentials ports.StoreCredentials,
	logger zerolog.Logger,
) *StoreService {
	return &StoreService{
		identity:    identity,
		shopify:     shopify,
		credentials: credentials,
		logger:      logger,
	}
}

// SyncProducts fetches the products of the merchant's Shopify store
func (s *StoreService) SyncProducts(ctx context.Context, merchantID string) (*SyncResult, error) {
	merchant, err := s.identity.GetMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	store, ok := merchant.ShopifyStore()
	if !ok {
		return nil, fmt.Errorf("%w: no shopify store connected for merchant %s", domain.ErrNotFound, merchantID)
	}

	session, err := s.credentials.SessionForStore(store)
	if err != nil {
		return nil, fmt.Errorf("failed to restore store session: %w", err)
	}

	products, err := s.shopify.GetProducts(ctx, session, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", store.ShopDomain).Msg("Failed to fetch products")
		return nil, fmt.Errorf("%w: fetch products: %v", domain.ErrUpstream, err)
	}

	s.logger.Info().
		Str("merchantId", merchantID).
		Str("shop", store.ShopDomain).
		Int("count", len(products)).
		Msg("Fetched store products")
	return &SyncResult{Shop: store.ShopDomain, Products: products}, nil
}
