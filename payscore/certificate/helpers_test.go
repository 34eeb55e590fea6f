//go:build unit

package certificate

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/envelope"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/LerianStudio/lib-payscore/payscore/signstring"
	"github.com/stretchr/testify/require"
)

var apiV3Key = []byte("0123456789abcdef0123456789abcdef")

var (
	platformKeyOnce sync.Once
	platformKey     *rsa.PrivateKey
	platformKeyErr  error
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	platformKeyOnce.Do(func() {
		platformKey, platformKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, platformKeyErr)

	return platformKey
}

type platformCert struct {
	cert *x509.Certificate
	pem  []byte
}

func newPlatformCert(t *testing.T, serial int64, notAfter time.Time) platformCert {
	t.Helper()

	key := signingKey(t)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "Tenpay.com Root CA"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return platformCert{cert: cert, pem: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})}
}

func (p platformCert) serial() string { return signature.SerialNumber(p.cert) }

func listBody(t *testing.T, key []byte, certs ...platformCert) []byte {
	t.Helper()

	items := make([]map[string]any, 0, len(certs))

	for _, c := range certs {
		env, err := envelope.Seal(key, c.pem, "certificate")
		require.NoError(t, err)

		items = append(items, map[string]any{
			"serial_no":      c.serial(),
			"effective_time": c.cert.NotBefore.Format(time.RFC3339),
			"expire_time":    c.cert.NotAfter.Format(time.RFC3339),
			"encrypt_certificate": map[string]any{
				"algorithm":       payscore.AlgorithmAEADAES256GCM,
				"nonce":           env.Nonce,
				"associated_data": env.AssociatedData,
				"ciphertext":      env.Ciphertext,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"data": items})
	require.NoError(t, err)

	return body
}

func signedHeader(t *testing.T, serial string, body []byte) http.Header {
	t.Helper()

	ts, nonce := "1610000000", payscore.NewNonce()

	sig, err := signature.SignRSA(signingKey(t), signstring.BuildResponse(ts, nonce, string(body)))
	require.NoError(t, err)

	h := http.Header{}
	h.Set(payscore.HeaderTimestamp, ts)
	h.Set(payscore.HeaderNonce, nonce)
	h.Set(payscore.HeaderSignature, sig.Value)
	h.Set(payscore.HeaderSerial, serial)

	return h
}

type fakeFetcher struct {
	calls  atomic.Int32
	body   []byte
	header http.Header
	err    error
}

func (f *fakeFetcher) GetUnverified(_ context.Context, path string) ([]byte, http.Header, error) {
	f.calls.Add(1)

	if path != ListPath {
		return nil, nil, http.ErrNotSupported
	}

	return f.body, f.header, f.err
}

func newFetcher(t *testing.T, certs ...platformCert) *fakeFetcher {
	t.Helper()

	body := listBody(t, apiV3Key, certs...)

	return &fakeFetcher{body: body, header: signedHeader(t, certs[0].serial(), body)}
}
