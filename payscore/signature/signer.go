package signature

import (
	"crypto/rsa"
	"errors"
	"fmt"
)

// Signer produces signatures for request sign-strings in a fixed mode.
type Signer interface {
	Sign(signString string) (Signature, error)
	Mode() Mode
}

// HMACSigner signs with the merchant API key.
type HMACSigner struct {
	secret string
}

// NewHMACSigner returns an HMAC signer. The secret must not be empty.
func NewHMACSigner(secret string) (*HMACSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty api key: %w", ErrKeyLoad)
	}

	return &HMACSigner{secret: secret}, nil
}

// Sign implements Signer.
func (s *HMACSigner) Sign(signString string) (Signature, error) {
	if s == nil {
		return Signature{}, errors.New("signature: nil HMAC signer")
	}

	return SignHMAC(s.secret, signString), nil
}

// Mode implements Signer.
func (s *HMACSigner) Mode() Mode { return ModeHMAC }

// String never exposes the secret.
func (s *HMACSigner) String() string { return "HMACSigner{secret:REDACTED}" }

// GoString never exposes the secret.
func (s *HMACSigner) GoString() string { return s.String() }

// RSASigner signs with the merchant private key.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner parses privateKeyPEM and returns an RSA signer.
func NewRSASigner(privateKeyPEM []byte) (*RSASigner, error) {
	key, err := ParsePrivateKey(privateKeyPEM, nil)
	if err != nil {
		return nil, err
	}

	return &RSASigner{key: key}, nil
}

// NewRSASignerFromKey wraps an already parsed private key.
func NewRSASignerFromKey(key *rsa.PrivateKey) (*RSASigner, error) {
	if key == nil {
		return nil, fmt.Errorf("nil private key: %w", ErrKeyLoad)
	}

	return &RSASigner{key: key}, nil
}

// Sign implements Signer.
func (s *RSASigner) Sign(signString string) (Signature, error) {
	if s == nil {
		return Signature{}, fmt.Errorf("nil RSA signer: %w", ErrKeyLoad)
	}

	return SignRSA(s.key, signString)
}

// Mode implements Signer.
func (s *RSASigner) Mode() Mode { return ModeRSA }

// String never exposes the key.
func (s *RSASigner) String() string { return "RSASigner{key:REDACTED}" }

// GoString never exposes the key.
func (s *RSASigner) GoString() string { return s.String() }
