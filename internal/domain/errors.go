package domain

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("...: %w", ErrX) and the HTTP
// boundary maps them to status codes with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrSignature      = errors.New("signature error")
	ErrUpstream       = errors.New("upstream error")
	ErrDecryption     = errors.New("decryption error")
	ErrNotFound       = errors.New("not found")
)

// ErrInvalidToken is returned for bad signatures, expired or malformed bearer tokens
var ErrInvalidToken = &kindError{kind: ErrAuthentication, msg: "invalid token"}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
