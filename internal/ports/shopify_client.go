package ports

import (
	"context"
	"net/http"

	"shopify-merchant-link/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify Admin API operations this service needs
type ShopifyClient interface {
	// Shop API
	GetShop(ctx context.Context, session *domain.PlatformSession) (*shopify.Shop, error)

	// Product API
	GetProducts(ctx context.Context, session *domain.PlatformSession, options interface{}) ([]shopify.Product, error)

	// Metafield API. Upserts a shop-owned metafield keyed by namespace and key.
	SetShopMetafield(ctx context.Context, session *domain.PlatformSession, namespace, key, value string) error
}

// OAuthProvider is the platform OAuth primitive
type OAuthProvider interface {
	// Begin prepares the redirect state for shop (writing any state cookie on w)
	// and returns the authorization URL. It does not commit the response.
	Begin(ctx context.Context, w http.ResponseWriter, r *http.Request, shop string) (string, error)

	// Callback validates the provider redirect and exchanges the code for an offline session
	Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (*domain.PlatformSession, error)
}
