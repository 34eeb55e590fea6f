//go:build unit

package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/envelope"
	"github.com/LerianStudio/lib-payscore/payscore/payafter"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIv3Key = "0123456789abcdef0123456789abcdef"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func keyAndCert(t *testing.T) (*rsa.PrivateKey, string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(0x5157F09E),
		Subject:      pkix.Name{CommonName: "merchant"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	return key, writeFile(t, "key.pem", keyPEM), writeFile(t, "cert.pem", certPEM)
}

func TestSerialCommand(t *testing.T) {
	t.Parallel()

	_, _, certFile := keyAndCert(t)

	out, err := run(t, "serial", certFile)
	require.NoError(t, err)
	assert.Equal(t, "5157F09E\n", out)

	_, err = run(t, "serial", filepath.Join(t.TempDir(), "missing.pem"))
	require.Error(t, err)
}

func TestSignCommandHMAC(t *testing.T) {
	t.Parallel()

	bodyFile := writeFile(t, "body.json", []byte(`{"out_order_no":"X1","openid":"o1","fees":null}`))

	out, err := run(t, "sign",
		"--method", "post", "--path", "v3/payscore/payafter-orders",
		"--timestamp", "1610000000", "--nonce", "abc123",
		"--body", "@"+bodyFile, "--hmac-secret", "secret")
	require.NoError(t, err)

	var got signOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	wantString := "POST\n/v3/payscore/payafter-orders\n1610000000\nabc123\n" +
		`{"out_order_no":"X1","openid":"o1","fees":null}` + "\n"

	assert.Equal(t, "HMAC-SHA256", got.Mode)
	assert.Equal(t, wantString, got.SignString)
	assert.Equal(t, signature.SignHMAC("secret", wantString).Value, got.Signature)
}

func TestSignCommandRSA(t *testing.T) {
	t.Parallel()

	key, keyFile, _ := keyAndCert(t)

	out, err := run(t, "sign", "--path", "/v3/certificates", "--key", keyFile)
	require.NoError(t, err)

	var got signOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "SHA256-RSA2048", got.Mode)
	assert.Len(t, got.Nonce, 32)
	assert.True(t, strings.HasPrefix(got.SignString, "GET\n/v3/certificates\n"))
	assert.True(t, strings.HasSuffix(got.SignString, "\n\n"))
	assert.True(t, signature.VerifyRSA(&key.PublicKey, got.Signature, got.SignString))
}

func TestSignCommandRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := run(t, "sign", "--path", "/x")
	require.Error(t, err)

	_, err = run(t, "sign", "--path", "/x", "--hmac-secret", "s", "--method", "DELETE")
	require.Error(t, err)

	_, err = run(t, "sign", "--path", "/x", "--hmac-secret", "s", "--timestamp", "yesterday")
	require.Error(t, err)
}

func TestDecryptCommand(t *testing.T) {
	t.Parallel()

	sealed, err := envelope.Seal([]byte(testAPIv3Key), []byte(`{"state":"DONE"}`), "payscore")
	require.NoError(t, err)

	out, err := run(t, "decrypt",
		"--apiv3-key", testAPIv3Key, "--nonce", sealed.Nonce,
		"--associated-data", sealed.AssociatedData, "--ciphertext", sealed.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "{\"state\":\"DONE\"}\n", out)

	_, err = run(t, "decrypt",
		"--apiv3-key", testAPIv3Key, "--nonce", sealed.Nonce,
		"--associated-data", "other", "--ciphertext", sealed.Ciphertext)
	require.ErrorIs(t, err, envelope.ErrAuthenticationFailed)
}

func TestEncryptFieldCommand(t *testing.T) {
	t.Parallel()

	key, _, certFile := keyAndCert(t)

	out, err := run(t, "encrypt-field", "--cert", certFile, "110101199003071234")
	require.NoError(t, err)

	plaintext, err := envelope.DecryptOAEPBase64(strings.TrimSpace(out), key)
	require.NoError(t, err)
	assert.Equal(t, "110101199003071234", string(plaintext))
}

func TestGatewayCommandsNeedConfig(t *testing.T) {
	t.Setenv("ENV_NAME", "test")
	t.Setenv("PAYSCORE_MCH_ID", "")

	_, err := run(t, "certificates")
	require.ErrorIs(t, err, payscore.ErrInvalidConfig)

	_, err = run(t, "order", "query", "--out-order-no", "X1")
	require.ErrorIs(t, err, payscore.ErrInvalidConfig)

	_, err = run(t, "order", "query")
	require.Error(t, err)
}

func TestOrderOutputAddsYuan(t *testing.T) {
	t.Parallel()

	out := newOrderOutput(&payafter.Order{OutOrderNo: "1234323JKHDFE1243252", TotalAmount: 50000, RiskAmount: 10000})

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, out))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1234323JKHDFE1243252", decoded["out_order_no"])
	assert.EqualValues(t, 50000, decoded["total_amount"])
	assert.Equal(t, "500.00", decoded["total_amount_yuan"])
	assert.Equal(t, "100.00", decoded["risk_amount_yuan"])
}
