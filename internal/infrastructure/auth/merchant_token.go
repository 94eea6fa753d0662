package auth

import (
	"fmt"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/rs/zerolog"
)

const clockLeeway = 30 * time.Second

// MerchantClaims are the custom claims carried by internal merchant tokens
type MerchantClaims struct {
	MerchantID string `json:"id,omitempty"`
	Email      string `json:"email,omitempty"`
}

// MerchantTokenVerifier validates HS256 tokens issued by the internal identity layer
type MerchantTokenVerifier struct {
	secret []byte
	now    func() time.Time
	logger zerolog.Logger
}

var _ ports.MerchantTokens = (*MerchantTokenVerifier)(nil)

// NewMerchantTokenVerifier constructs a verifier for the shared JWT secret
func NewMerchantTokenVerifier(secret string, logger zerolog.Logger) *MerchantTokenVerifier {
	return &MerchantTokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
		logger: logger,
	}
}

// Issue signs a merchant token
func (v *MerchantTokenVerifier) Issue(merchantID, email string, ttl time.Duration) (string, error) {
	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: v.secret}, (&gojose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := v.now().UTC()
	std := gojwt.Claims{
		Subject:  merchantID,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(ttl)),
	}
	custom := MerchantClaims{MerchantID: merchantID, Email: email}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}

// Verify checks signature and expiry and returns the merchant claims
func (v *MerchantTokenVerifier) Verify(token string) (*domain.MerchantClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", domain.ErrInvalidToken)
	}

	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: parse token: %v", domain.ErrInvalidToken, err)
	}

	var std gojwt.Claims
	var custom MerchantClaims
	if err := parsed.Claims(v.secret, &std, &custom); err != nil {
		return nil, fmt.Errorf("%w: verify token: %v", domain.ErrInvalidToken, err)
	}
	if std.Expiry == nil {
		return nil, fmt.Errorf("%w: token has no expiry", domain.ErrInvalidToken)
	}
	if err := std.ValidateWithLeeway(gojwt.Expected{Time: v.now()}, clockLeeway); err != nil {
		return nil, fmt.Errorf("%w: validate claims: %v", domain.ErrInvalidToken, err)
	}

	merchantID := custom.MerchantID
	if merchantID == "" {
		merchantID = std.Subject
	}
	if merchantID == "" {
		return nil, fmt.Errorf("%w: token has no merchant id", domain.ErrInvalidToken)
	}

	return &domain.MerchantClaims{
		MerchantID: merchantID,
		Email:      custom.Email,
		ExpiresAt:  std.Expiry.Time(),
	}, nil
}

// TryDecode is the soft variant used by the install entrypoint: a missing or
// invalid token means "no merchant identified", never an error.
func (v *MerchantTokenVerifier) TryDecode(token string) (*domain.MerchantClaims, bool) {
	if strings.TrimSpace(token) == "" {
		return nil, false
	}
	claims, err := v.Verify(token)
	if err != nil {
		v.logger.Warn().Err(err).Msg("Could not decode merchant token, continuing without merchant")
		return nil, false
	}
	return claims, true
}
