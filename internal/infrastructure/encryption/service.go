package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"
)

const (
	keyLength     = 32
	ivLength      = 16
	authTagLength = 16
	separator     = ":"
)

// Service encrypts access tokens with AES-256-GCM.
// Encoded values have the form iv_hex:auth_tag_hex:ciphertext_hex.
type Service struct {
	aead cipher.AEAD
	rand io.Reader
}

var _ ports.EncryptionService = (*Service)(nil)

// NewService creates an encryption service. The key must be exactly 32 bytes.
func NewService(key string) (*Service, error) {
	return newService([]byte(key), rand.Reader)
}

func newService(key []byte, random io.Reader) (*Service, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("encryption key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Service{aead: aead, rand: random}, nil
}

// Encrypt encrypts plaintext with a fresh random IV. Empty plaintext is rejected
// since it would encode to an empty ciphertext segment.
func (s *Service) Encrypt(plaintext string) (domain.EncryptedCredential, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: plaintext cannot be empty", domain.ErrValidation)
	}
	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(s.rand, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := s.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-authTagLength]
	authTag := sealed[len(sealed)-authTagLength:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(authTag),
		hex.EncodeToString(ciphertext),
	}, separator), nil
}

// Decrypt reverses Encrypt. Any malformed or tampered input yields domain.ErrDecryption.
func (s *Service) Decrypt(encoded domain.EncryptedCredential) (string, error) {
	parts := strings.Split(encoded, separator)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", domain.ErrDecryption, len(parts))
	}

	iv, err := decodeSegment(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", domain.ErrDecryption, err)
	}
	authTag, err := decodeSegment(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: auth tag: %v", domain.ErrDecryption, err)
	}
	ciphertext, err := decodeSegment(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", domain.ErrDecryption, err)
	}
	if len(iv) != ivLength {
		return "", fmt.Errorf("%w: iv must be %d bytes", domain.ErrDecryption, ivLength)
	}
	if len(authTag) != authTagLength {
		return "", fmt.Errorf("%w: auth tag must be %d bytes", domain.ErrDecryption, authTagLength)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	plaintext, err := s.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrDecryption)
	}
	return string(plaintext), nil
}

// decodeSegment accepts only non-empty lowercase hex, the form Encrypt produces
func decodeSegment(segment string) ([]byte, error) {
	if segment == "" {
		return nil, fmt.Errorf("empty segment")
	}
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return nil, fmt.Errorf("invalid hex character at %d", i)
		}
	}
	return hex.DecodeString(segment)
}
