package signature

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyLoad indicates malformed or unparseable key material, or a wrong passphrase.
	ErrKeyLoad = errors.New("signature: key load failed")
	// ErrUnsupportedKeyType indicates a non-RSA key where RSA is required.
	ErrUnsupportedKeyType = errors.New("signature: unsupported key type")
	// ErrSigning indicates the signing primitive failed.
	ErrSigning = errors.New("signature: signing failed")
)

// Mode identifies which algorithm and encoding produced a Signature.
type Mode uint8

const (
	// ModeHMAC is HMAC-SHA256 with uppercase hex encoding.
	ModeHMAC Mode = iota + 1
	// ModeRSA is RSA-SHA256 PKCS#1 v1.5 with standard base64 encoding.
	ModeRSA
)

// String returns the algorithm label of the mode.
func (m Mode) String() string {
	switch m {
	case ModeHMAC:
		return "HMAC-SHA256"
	case ModeRSA:
		return "SHA256-RSA2048"
	default:
		return "unknown"
	}
}

// Signature is an encoded signature tagged with the mode that produced it.
type Signature struct {
	Mode  Mode
	Value string
}

// String returns the encoded signature value.
func (s Signature) String() string {
	return s.Value
}

// SignHMAC computes HMAC-SHA256 of signString keyed by secret and encodes it as uppercase hex.
func SignHMAC(secret, signString string) Signature {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signString))

	return Signature{
		Mode:  ModeHMAC,
		Value: strings.ToUpper(hex.EncodeToString(mac.Sum(nil))),
	}
}

// VerifyHMAC recomputes the HMAC of signString and compares it with the
// hex signature in constant time. Hex case is ignored.
func VerifyHMAC(secret, signString, signatureHex string) bool {
	actual, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(SignHMAC(secret, signString).Value)
	if err != nil {
		return false
	}

	return hmac.Equal(expected, actual)
}

// SignRSA signs signString with RSA PKCS#1 v1.5 over SHA-256 and encodes the result as base64.
func SignRSA(key *rsa.PrivateKey, signString string) (Signature, error) {
	if key == nil {
		return Signature{}, fmt.Errorf("nil private key: %w", ErrKeyLoad)
	}

	digest := sha256.Sum256([]byte(signString))

	raw, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	return Signature{
		Mode:  ModeRSA,
		Value: base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// SignRSAPEM parses a PEM private key and signs signString with it.
func SignRSAPEM(privateKeyPEM []byte, signString string) (Signature, error) {
	key, err := ParsePrivateKey(privateKeyPEM, nil)
	if err != nil {
		return Signature{}, err
	}

	return SignRSA(key, signString)
}

// VerifyRSA reports whether signatureBase64 is a valid RSA PKCS#1 v1.5 SHA-256
// signature of message under key. Any failure, including malformed base64 or
// a nil key, yields false.
func VerifyRSA(key *rsa.PublicKey, signatureBase64, message string) bool {
	if key == nil {
		return false
	}

	raw, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		return false
	}

	digest := sha256.Sum256([]byte(message))

	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], raw) == nil
}
