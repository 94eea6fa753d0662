package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin API version used for all calls
const DefaultAPIVersion = "2025-04"

const metafieldsSetMutation = `mutation SetShopMetafield($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id namespace key value }
    userErrors { field message }
  }
}`

const shopIDQuery = `{ shop { id } }`

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, timeout time.Duration, logger zerolog.Logger) ports.ShopifyClient {
	return NewClientWithOptions(apiKey, apiSecret, DefaultAPIVersion, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithOptions creates a client with an explicit API version and HTTP client
func NewClientWithOptions(apiKey, apiSecret, apiVersion string, httpClient *http.Client, logger zerolog.Logger) ports.ShopifyClient {
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client for a session
func (c *client) createClient(session *domain.PlatformSession) (*goshopify.Client, error) {
	if session == nil || session.AccessToken == "" {
		return nil, fmt.Errorf("session with access token is required")
	}
	client, err := goshopify.NewClient(c.app, session.Shop, session.AccessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Shop API

func (c *client) GetShop(ctx context.Context, session *domain.PlatformSession) (*goshopify.Shop, error) {
	client, err := c.createClient(session)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}

// Product API

func (c *client) GetProducts(ctx context.Context, session *domain.PlatformSession, options interface{}) ([]goshopify.Product, error) {
	client, err := c.createClient(session)
	if err != nil {
		return nil, err
	}
	products, err := client.Product.List(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Metafield API

type metafieldUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type metafieldsSetResponse struct {
	MetafieldsSet struct {
		Metafields []struct {
			ID        string `json:"id"`
			Namespace string `json:"namespace"`
			Key       string `json:"key"`
			Value     string `json:"value"`
		} `json:"metafields"`
		UserErrors []metafieldUserError `json:"userErrors"`
	} `json:"metafieldsSet"`
}

func (c *client) SetShopMetafield(ctx context.Context, session *domain.PlatformSession, namespace, key, value string) error {
	client, err := c.createClient(session)
	if err != nil {
		return err
	}

	var shopResp struct {
		Shop struct {
			ID string `json:"id"`
		} `json:"shop"`
	}
	if err := client.GraphQL.Query(ctx, shopIDQuery, nil, &shopResp); err != nil {
		return fmt.Errorf("failed to query shop id: %w", err)
	}
	if shopResp.Shop.ID == "" {
		return fmt.Errorf("shop id missing from response")
	}

	vars := map[string]interface{}{
		"metafields": []map[string]interface{}{
			{
				"ownerId":   shopResp.Shop.ID,
				"namespace": namespace,
				"key":       key,
				"type":      "single_line_text_field",
				"value":     value,
			},
		},
	}
	var resp metafieldsSetResponse
	if err := client.GraphQL.Query(ctx, metafieldsSetMutation, vars, &resp); err != nil {
		return fmt.Errorf("failed to set metafield: %w", err)
	}
	if len(resp.MetafieldsSet.UserErrors) > 0 {
		messages := make([]string, 0, len(resp.MetafieldsSet.UserErrors))
		for _, ue := range resp.MetafieldsSet.UserErrors {
			messages = append(messages, ue.Message)
		}
		return fmt.Errorf("metafieldsSet rejected: %s", strings.Join(messages, ", "))
	}

	c.logger.Debug().
		Str("shop", session.Shop).
		Str("namespace", namespace).
		Str("key", key).
		Msg("Shop metafield set")
	return nil
}
