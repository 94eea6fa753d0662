package shopify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTokenLeeway = 5 * time.Second

// SessionTokenClaims are the claims of an App Bridge session token
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	SID  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokenDecoder validates session tokens issued by the embedded admin
type SessionTokenDecoder struct {
	apiKey    string
	apiSecret []byte
	now       func() time.Time
}

var _ ports.SessionTokens = (*SessionTokenDecoder)(nil)

// NewSessionTokenDecoder creates a decoder for tokens signed with the app's API secret
func NewSessionTokenDecoder(apiKey, apiSecret string) *SessionTokenDecoder {
	return &SessionTokenDecoder{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		now:       time.Now,
	}
}

// Decode verifies the token and returns the shop domain it was issued for
func (d *SessionTokenDecoder) Decode(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("%w: session token is required", domain.ErrAuthentication)
	}

	var claims SessionTokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return d.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(d.apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(sessionTokenLeeway),
		jwt.WithTimeFunc(d.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	shop, err := hostOf(claims.Dest)
	if err != nil {
		return "", fmt.Errorf("%w: dest: %v", domain.ErrInvalidToken, err)
	}
	if claims.Issuer != "" {
		issuerShop, err := hostOf(claims.Issuer)
		if err != nil || !strings.EqualFold(issuerShop, shop) {
			return "", fmt.Errorf("%w: issuer does not match destination", domain.ErrInvalidToken)
		}
	}
	return shop, nil
}

func hostOf(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "https" || parsed.Hostname() == "" {
		return "", fmt.Errorf("https URL required")
	}
	return strings.ToLower(parsed.Hostname()), nil
}
