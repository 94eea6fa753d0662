package application

import (
	"context"
	"fmt"
	"strings"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// LoginService signs a merchant in from inside the embedded admin and links
// the merchant to the shop the admin session belongs to.
type LoginService struct {
	identity    ports.IdentityClient
	shopify     ports.ShopifyClient
	credentials ports.StoreCredentials
	linker      Linker
	logger      zerolog.Logger
}

// NewLoginService creates a new login service
func NewLoginService(
	identity ports.IdentityClient,
	shopify ports.ShopifyClient,
	credentials ports.StoreCredentials,
	linker Linker,
	logger zerolog.Logger,
) *LoginService {
	return &LoginService{
		identity:    identity,
		shopify:     shopify,
		credentials: credentials,
		linker:      linker,
		logger:      logger,
	}
}

// LoginAndLink authenticates email/password against the identity service and
// links the resulting merchant to session's shop.
func (s *LoginService) LoginAndLink(ctx context.Context, session *domain.PlatformSession, email, password string) (*ports.LoginResult, error) {
	if session == nil || session.AccessToken == "" {
		return nil, fmt.Errorf("%w: no active shop session", domain.ErrAuthentication)
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	if !s.credentials.ValidateToken(ctx, s.shopify, session) {
		return nil, fmt.Errorf("%w: stored shop session is no longer valid", domain.ErrAuthentication)
	}

	login, err := s.identity.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to log in merchant: %w", err)
	}
	if login == nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrAuthentication)
	}

	if _, err := s.linker.Link(ctx, login.Merchant.ID, session.Shop, session.AccessToken); err != nil {
		return nil, err
	}
	return login, nil
}
