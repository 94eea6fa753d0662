package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

// NormalizeShopDomain lowercases and validates a bare shop host name
func NormalizeShopDomain(shop string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(shop))
	if normalized == "" {
		return "", fmt.Errorf("%w: shop is required", ErrValidation)
	}
	if !shopDomainPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: invalid shop domain %q", ErrValidation, shop)
	}
	return normalized, nil
}
