package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	defaultPort         = "8080"
	defaultDatabase     = "shopify_merchant_link"
	defaultHTTPTimeout  = 10 * time.Second
	encryptionKeyLength = 32
	jwtSecretMinLength  = 32
)

// Config is the process configuration, read once at startup
type Config struct {
	Port string

	ShopifyAPIKey    string
	ShopifyAPISecret string
	ShopifyScopes    []string
	Host             string

	JWTSecret        string
	EncryptionSecret string

	RedisURL        string
	MongoURI        string
	MongoDatabase   string
	MerchantKYCURL  string
	// Base URLs of the sibling catalog and checkout services, validated only
	ItemsServiceURL string
	CheckoutURL     string

	HTTPTimeout    time.Duration
	AllowedOrigins []string
}

// Load reads .env when present, then the environment, and validates the result
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. All problems are reported together.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error
	required := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
		return v
	}
	optional := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:             optional("PORT", defaultPort),
		ShopifyAPIKey:    required("SHOPIFY_API_KEY"),
		ShopifyAPISecret: required("SHOPIFY_API_SECRET"),
		ShopifyScopes:    splitList(required("SHOPIFY_SCOPES")),
		Host:             strings.TrimSuffix(required("HOST"), "/"),
		JWTSecret:        required("JWT_SECRET"),
		EncryptionSecret: required("ENCRYPTION_SECRET"),
		RedisURL:         required("REDIS_URL"),
		MongoURI:         required("MONGODB_URI"),
		MongoDatabase:    optional("MONGODB_DATABASE", defaultDatabase),
		MerchantKYCURL:   required("MERCHANT_KYC_API_URL"),
		ItemsServiceURL:  optional("ITEMS_SERVICE_API_URL", ""),
		CheckoutURL:      optional("CHECKOUT_SERVICE_API_URL", ""),
		HTTPTimeout:      defaultHTTPTimeout,
		AllowedOrigins:   splitList(optional("CORS_ALLOWED_ORIGINS", "")),
	}

	// HS256 signing and verification refuse keys shorter than the hash size
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < jwtSecretMinLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", jwtSecretMinLength, len(cfg.JWTSecret)))
	}
	if cfg.EncryptionSecret != "" && len(cfg.EncryptionSecret) != encryptionKeyLength {
		errs = append(errs, fmt.Errorf("ENCRYPTION_SECRET must be exactly %d bytes, got %d", encryptionKeyLength, len(cfg.EncryptionSecret)))
	}

	if raw := getenv("HTTP_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.HTTPTimeout = timeout
		}
	}

	for key, value := range map[string]string{
		"HOST":                     cfg.Host,
		"MERCHANT_KYC_API_URL":     cfg.MerchantKYCURL,
		"ITEMS_SERVICE_API_URL":    cfg.ItemsServiceURL,
		"CHECKOUT_SERVICE_API_URL": cfg.CheckoutURL,
	} {
		if value == "" {
			continue
		}
		if err := validateURL(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RedirectURL is the OAuth callback registered with Shopify
func (c *Config) RedirectURL() string {
	return c.Host + "/api/auth/callback"
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
