package encryption

import (
	"bytes"
	"strings"
	"testing"

	"shopify-merchant-link/internal/domain"

	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(testKey)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsWrongKeyLength(t *testing.T) {
	for _, key := range []string{"", "short", testKey + "x"} {
		_, err := NewService(key)
		require.Error(t, err, "key length %d", len(key))
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc := newTestService(t)

	for _, plaintext := range []string{
		"shpat_0123456789abcdef",
		"x",
		"ünïcødé ✓ 日本語",
		strings.Repeat("x", 4096),
	} {
		encoded, err := svc.Encrypt(plaintext)
		require.NoError(t, err)

		parts := strings.Split(encoded, ":")
		require.Len(t, parts, 3)
		require.Len(t, parts[0], ivLength*2)
		require.Len(t, parts[1], authTagLength*2)

		decrypted, err := svc.Decrypt(encoded)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptRejectsEmptyPlaintext(t *testing.T) {
	svc := newTestService(t)

	encoded, err := svc.Encrypt("")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Empty(t, encoded)
}

func TestEncryptUsesFreshIV(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Encrypt("token")
	require.NoError(t, err)
	second, err := svc.Encrypt("token")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NotEqual(t, strings.Split(first, ":")[0], strings.Split(second, ":")[0])
}

func TestDecryptFailsOnEverySingleBitFlip(t *testing.T) {
	svc := newTestService(t)
	encoded, err := svc.Encrypt("shpat_secret_token")
	require.NoError(t, err)

	raw := []byte(encoded)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := bytes.Clone(raw)
			mutated[i] ^= 1 << bit
			_, err := svc.Decrypt(string(mutated))
			require.ErrorIs(t, err, domain.ErrDecryption, "byte %d bit %d", i, bit)
		}
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)
	encoded, err := svc.Encrypt("token")
	require.NoError(t, err)
	parts := strings.Split(encoded, ":")

	cases := map[string]string{
		"empty":            "",
		"two segments":     parts[0] + ":" + parts[1],
		"four segments":    encoded + ":00",
		"empty iv":         ":" + parts[1] + ":" + parts[2],
		"not hex":          "zz:" + parts[1] + ":" + parts[2],
		"uppercase hex":    strings.ToUpper(encoded),
		"swapped segments": parts[1] + ":" + parts[0] + ":" + parts[2],
		"reordered":        parts[2] + ":" + parts[1] + ":" + parts[0],
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Decrypt(value)
			require.ErrorIs(t, err, domain.ErrDecryption)
		})
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	svc := newTestService(t)
	encoded, err := svc.Encrypt("token")
	require.NoError(t, err)

	other, err := NewService(strings.Repeat("k", 32))
	require.NoError(t, err)
	_, err = other.Decrypt(encoded)
	require.ErrorIs(t, err, domain.ErrDecryption)
}
