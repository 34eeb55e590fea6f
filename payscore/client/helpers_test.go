//go:build unit

package client

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/LerianStudio/lib-payscore/payscore/signstring"
	"github.com/stretchr/testify/require"
)

const (
	testMchID  = "1900000001"
	testSecret = "hmac-api-key"
	fixedTS    = int64(1610000000)
)

var (
	keysOnce    sync.Once
	merchantKey *rsa.PrivateKey
	platformKey *rsa.PrivateKey
	keysErr     error
)

func keys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()

	keysOnce.Do(func() {
		merchantKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		if keysErr != nil {
			return
		}

		platformKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, keysErr)

	return merchantKey, platformKey
}

func platformCertificate(t *testing.T, serial int64) (*x509.Certificate, []byte) {
	t.Helper()

	_, key := keys(t)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "platform"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// signResponse writes body with platform signature headers.
func signResponse(t *testing.T, w http.ResponseWriter, serial string, status int, body []byte) {
	t.Helper()

	_, key := keys(t)
	ts, nonce := "1610000001", payscore.NewNonce()

	sig, err := signature.SignRSA(key, signstring.BuildResponse(ts, nonce, string(body)))
	require.NoError(t, err)

	w.Header().Set(payscore.HeaderTimestamp, ts)
	w.Header().Set(payscore.HeaderNonce, nonce)
	w.Header().Set(payscore.HeaderSignature, sig.Value)
	w.Header().Set(payscore.HeaderSerial, serial)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func parseAuthorization(t *testing.T, header string) (string, map[string]string) {
	t.Helper()

	scheme, rest, ok := strings.Cut(header, " ")
	require.True(t, ok, "authorization %q has no scheme", header)

	fields := map[string]string{}

	for _, part := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(part, "=")
		require.True(t, ok)

		fields[k] = strings.Trim(v, `"`)
	}

	return scheme, fields
}

func nonceSequence() func() string {
	var (
		mu sync.Mutex
		n  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		n++

		return "nonce" + strings.Repeat("x", n)
	}
}

func fixedClock() time.Time { return time.Unix(fixedTS, 0) }

func x509MarshalPKCS8(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
