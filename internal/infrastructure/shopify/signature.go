package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"shopify-merchant-link/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// QueryParam is a single query parameter in the order it was received
type QueryParam struct {
	Key   string
	Value string
}

// SignatureVerifier validates HMAC-SHA256 signatures on Shopify requests
type SignatureVerifier struct {
	app    goshopify.App
	secret []byte
}

// NewSignatureVerifier creates a verifier keyed with the app's API secret
func NewSignatureVerifier(apiSecret string) *SignatureVerifier {
	return &SignatureVerifier{
		app:    goshopify.App{ApiSecret: apiSecret},
		secret: []byte(apiSecret),
	}
}

// ParseOrderedQuery decodes a raw query string keeping parameter order
func ParseOrderedQuery(rawQuery string) ([]QueryParam, error) {
	var params []QueryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed query key: %v", domain.ErrValidation, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed query value for %q: %v", domain.ErrValidation, key, err)
		}
		params = append(params, QueryParam{Key: key, Value: value})
	}
	return params, nil
}

// HMACParam returns the value of the hmac parameter, if present
func HMACParam(params []QueryParam) (string, bool) {
	for _, p := range params {
		if p.Key == "hmac" {
			return p.Value, true
		}
	}
	return "", false
}

// VerifyQueryHMAC checks providedHMAC (hex) against the HMAC of the remaining
// parameters serialized in received order.
func (v *SignatureVerifier) VerifyQueryHMAC(params []QueryParam, providedHMAC string) bool {
	if providedHMAC == "" {
		return false
	}
	return v.app.VerifyMessage(serializeQuery(params), providedHMAC)
}

// VerifyWebhook checks a base64 HMAC against the raw, unparsed request body
func (v *SignatureVerifier) VerifyWebhook(rawBody []byte, providedHMACBase64 string) bool {
	if providedHMACBase64 == "" {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(providedHMACBase64)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided)
}

// serializeQuery form-encodes params in order, skipping the signature fields
func serializeQuery(params []QueryParam) string {
	var b strings.Builder
	for _, p := range params {
		if p.Key == "hmac" || p.Key == "signature" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
