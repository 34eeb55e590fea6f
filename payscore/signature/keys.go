package signature

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

const encryptedPKCS8BlockType = "ENCRYPTED PRIVATE KEY"

// CertificateInfo is the key material and identifier derived from a certificate.
type CertificateInfo struct {
	PublicKey    *rsa.PublicKey
	SerialNumber string
}

// ParsePrivateKey decodes a PEM RSA private key in PKCS#8 or PKCS#1 form.
// Encrypted PKCS#8 blocks and legacy encrypted PEM blocks are decrypted with
// passphrase.
func ParsePrivateKey(privateKeyPEM []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found: %w", ErrKeyLoad)
	}

	der := block.Bytes

	if block.Type == encryptedPKCS8BlockType {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("encrypted private key requires a passphrase: %w", ErrKeyLoad)
		}

		key, err := pkcs8.ParsePKCS8PrivateKey(der, passphrase)
		if err != nil {
			return nil, fmt.Errorf("decrypt pkcs8 private key: %w", ErrKeyLoad)
		}

		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T: %w", key, ErrUnsupportedKeyType)
		}

		return rsaKey, nil
	}

	//nolint:staticcheck // legacy PEM encryption is the only passphrase format the stdlib can read.
	if x509.IsEncryptedPEMBlock(block) {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("encrypted private key requires a passphrase: %w", ErrKeyLoad)
		}

		//nolint:staticcheck // see above.
		decrypted, err := x509.DecryptPEMBlock(block, passphrase)
		if err != nil {
			return nil, fmt.Errorf("decrypt private key: %w", ErrKeyLoad)
		}

		der = decrypted
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T: %w", key, ErrUnsupportedKeyType)
		}

		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", ErrKeyLoad)
	}

	return key, nil
}

// ParsePublicKey decodes a PEM RSA public key. PKIX, PKCS#1 and certificate
// blocks are accepted.
func ParsePublicKey(publicKeyPEM []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found: %w", ErrKeyLoad)
	}

	if block.Type == "CERTIFICATE" {
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", ErrKeyLoad)
		}

		return ExtractPublicKey(cert)
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T: %w", key, ErrUnsupportedKeyType)
		}

		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", ErrKeyLoad)
	}

	return key, nil
}

// ParseCertificate decodes a PEM encoded X.509 certificate.
func ParseCertificate(certificatePEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certificatePEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no CERTIFICATE PEM block found: %w", ErrKeyLoad)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", ErrKeyLoad)
	}

	return cert, nil
}

// ExtractPublicKey returns the RSA public key carried by cert.
func ExtractPublicKey(cert *x509.Certificate) (*rsa.PublicKey, error) {
	if cert == nil {
		return nil, fmt.Errorf("nil certificate: %w", ErrKeyLoad)
	}

	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate key is %T: %w", cert.PublicKey, ErrUnsupportedKeyType)
	}

	return key, nil
}

// SerialNumber formats the certificate serial as uppercase hexadecimal without padding.
func SerialNumber(cert *x509.Certificate) string {
	if cert == nil || cert.SerialNumber == nil {
		return ""
	}

	return strings.ToUpper(cert.SerialNumber.Text(16))
}

// Inspect derives the public key and serial number of cert. Nothing is cached.
func Inspect(cert *x509.Certificate) (CertificateInfo, error) {
	key, err := ExtractPublicKey(cert)
	if err != nil {
		return CertificateInfo{}, err
	}

	return CertificateInfo{PublicKey: key, SerialNumber: SerialNumber(cert)}, nil
}
