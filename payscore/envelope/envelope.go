package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/LerianStudio/lib-payscore/payscore/signature"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// NonceSize is the GCM nonce length used by the gateway.
const NonceSize = 12

var (
	// ErrAuthenticationFailed indicates the GCM tag did not verify: wrong key,
	// nonce or associated data, or a tampered ciphertext.
	ErrAuthenticationFailed = errors.New("envelope: authentication failed")
	// ErrDecryption indicates the ciphertext could not be decrypted for a reason
	// other than a tag mismatch.
	ErrDecryption = errors.New("envelope: decryption failed")
	// ErrEncryption indicates the encryption primitive failed.
	ErrEncryption = errors.New("envelope: encryption failed")
	// ErrPlaintextTooLarge indicates the plaintext exceeds the OAEP capacity of the key.
	ErrPlaintextTooLarge = errors.New("envelope: plaintext too large")
	// ErrKeyLoad is shared with the signature package so both report bad key material the same way.
	ErrKeyLoad = signature.ErrKeyLoad
)

// SealedEnvelope is the encrypted part of a notification resource.
// It is consumed by a single Open call.
type SealedEnvelope struct {
	Nonce          string `json:"nonce"`
	Ciphertext     string `json:"ciphertext"`
	AssociatedData string `json:"associated_data"`
}

// Open decrypts the envelope with key.
func (e SealedEnvelope) Open(key []byte) ([]byte, error) {
	return DecryptResource(key, e.Nonce, e.Ciphertext, e.AssociatedData)
}

// DecryptResource base64-decodes ciphertextB64 and opens it with AES-256-GCM
// using nonce and associatedData.
func DecryptResource(key []byte, nonce, ciphertextB64, associatedData string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not valid base64", ErrDecryption)
	}

	aead, err := newGCM(key, len(nonce))
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", ErrAuthenticationFailed)
	}

	plaintext, err := aead.Open(nil, []byte(nonce), ciphertext, []byte(associatedData))
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

// EncryptResource seals plaintext with AES-256-GCM and returns the base64
// ciphertext with the tag appended. The caller owns nonce uniqueness.
func EncryptResource(key []byte, nonce string, plaintext []byte, associatedData string) (string, error) {
	aead, err := newGCM(key, len(nonce))
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, []byte(nonce), plaintext, []byte(associatedData))

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the envelope.
func Seal(key []byte, plaintext []byte, associatedData string) (SealedEnvelope, error) {
	nonce, err := randomNonce()
	if err != nil {
		return SealedEnvelope{}, err
	}

	ciphertext, err := EncryptResource(key, nonce, plaintext, associatedData)
	if err != nil {
		return SealedEnvelope{}, err
	}

	return SealedEnvelope{Nonce: nonce, Ciphertext: ciphertext, AssociatedData: associatedData}, nil
}

func newGCM(key []byte, nonceLen int) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aes key must be %d bytes, got %d: %w", KeySize, len(key), ErrKeyLoad)
	}

	if nonceLen == 0 {
		return nil, fmt.Errorf("%w: empty nonce", ErrDecryption)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyLoad, err)
	}

	if nonceLen == NonceSize {
		return cipher.NewGCM(block)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	return aead, nil
}

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// nonceByteLimit is the largest multiple of len(nonceAlphabet) that fits in a byte.
// Bytes at or above it are discarded so every character is equally likely.
const nonceByteLimit = 256 - 256%len(nonceAlphabet)

// randomNonce returns a printable nonce since the gateway carries nonces as strings.
func randomNonce() (string, error) {
	return nonceFrom(rand.Reader)
}

func nonceFrom(r io.Reader) (string, error) {
	out := make([]byte, 0, NonceSize)
	buf := make([]byte, NonceSize)

	for len(out) < NonceSize {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("rand nonce: %w", err)
		}

		for _, b := range buf {
			if int(b) >= nonceByteLimit {
				continue
			}

			out = append(out, nonceAlphabet[int(b)%len(nonceAlphabet)])
			if len(out) == NonceSize {
				break
			}
		}
	}

	return string(out), nil
}
