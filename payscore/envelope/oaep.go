package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // OAEP-SHA1 is fixed by the gateway protocol.
	"encoding/base64"
	"fmt"

	"github.com/LerianStudio/lib-payscore/payscore/signature"
)

// oaepOverhead is 2*hLen+2 for SHA-1.
const oaepOverhead = 2*sha1.Size + 2

// MaxOAEPPlaintext returns the largest plaintext pub can carry under OAEP-SHA1.
func MaxOAEPPlaintext(pub *rsa.PublicKey) int {
	if pub == nil {
		return 0
	}

	return pub.Size() - oaepOverhead
}

// EncryptOAEP encrypts plaintext for the holder of publicKeyPEM. The PEM may
// hold a public key or a certificate. With b64 the result is standard base64.
func EncryptOAEP(plaintext []byte, publicKeyPEM []byte, b64 bool) ([]byte, error) {
	pub, err := signature.ParsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	ciphertext, err := EncryptOAEPWithKey(plaintext, pub)
	if err != nil {
		return nil, err
	}

	if !b64 {
		return ciphertext, nil
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(len(ciphertext)))
	base64.StdEncoding.Encode(out, ciphertext)

	return out, nil
}

// EncryptOAEPString encrypts a sensitive field and returns it base64 encoded,
// the form request bodies carry.
func EncryptOAEPString(plaintext string, pub *rsa.PublicKey) (string, error) {
	ciphertext, err := EncryptOAEPWithKey([]byte(plaintext), pub)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// EncryptOAEPWithKey encrypts plaintext with an already parsed key.
func EncryptOAEPWithKey(plaintext []byte, pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("nil public key: %w", ErrKeyLoad)
	}

	if limit := MaxOAEPPlaintext(pub); len(plaintext) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPlaintextTooLarge, len(plaintext), limit)
	}

	//nolint:gosec // see import.
	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	return ciphertext, nil
}

// DecryptOAEP decrypts raw ciphertext with the PEM private key. passphrase is
// only consulted for encrypted PEM blocks.
func DecryptOAEP(ciphertext []byte, privateKeyPEM []byte, passphrase []byte) ([]byte, error) {
	key, err := signature.ParsePrivateKey(privateKeyPEM, passphrase)
	if err != nil {
		return nil, err
	}

	return DecryptOAEPWithKey(ciphertext, key)
}

// DecryptOAEPBase64 decodes a base64 field before decrypting it.
func DecryptOAEPBase64(ciphertextB64 string, key *rsa.PrivateKey) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not valid base64", ErrDecryption)
	}

	return DecryptOAEPWithKey(ciphertext, key)
}

// DecryptOAEPWithKey decrypts raw ciphertext with an already parsed key.
func DecryptOAEPWithKey(ciphertext []byte, key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("nil private key: %w", ErrKeyLoad)
	}

	//nolint:gosec // see import.
	plaintext, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, key, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}
