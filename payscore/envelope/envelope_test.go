//go:build unit

package envelope

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey   = []byte("0123456789abcdef0123456789abcdef")
	testNonce = "abcdefghijkl"
	testAD    = "transaction"
)

func TestDecryptResource_RoundTrip(t *testing.T) {
	t.Parallel()

	plaintext := []byte(`{"out_order_no":"X1","state":"DONE"}`)

	ct, err := EncryptResource(testKey, testNonce, plaintext, testAD)
	require.NoError(t, err)

	got, err := DecryptResource(testKey, testNonce, ct, testAD)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptResource_EmptyAssociatedData(t *testing.T) {
	t.Parallel()

	ct, err := EncryptResource(testKey, testNonce, []byte("x"), "")
	require.NoError(t, err)

	got, err := DecryptResource(testKey, testNonce, ct, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestDecryptResource_SingleFieldAltered(t *testing.T) {
	t.Parallel()

	ct, err := EncryptResource(testKey, testNonce, []byte("secret payload"), testAD)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)

	flipped := bytes.Clone(raw)
	flipped[0] ^= 0x01

	otherKey := bytes.Clone(testKey)
	otherKey[31] ^= 0x01

	tests := []struct {
		name  string
		key   []byte
		nonce string
		ct    string
		ad    string
	}{
		{name: "key", key: otherKey, nonce: testNonce, ct: ct, ad: testAD},
		{name: "nonce", key: testKey, nonce: "abcdefghijkm", ct: ct, ad: testAD},
		{name: "ciphertext", key: testKey, nonce: testNonce, ct: base64.StdEncoding.EncodeToString(flipped), ad: testAD},
		{name: "associated data", key: testKey, nonce: testNonce, ct: ct, ad: "certificate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecryptResource(tt.key, tt.nonce, tt.ct, tt.ad)
			require.ErrorIs(t, err, ErrAuthenticationFailed)
			assert.Nil(t, got)
		})
	}
}

func TestDecryptResource_InvalidInputs(t *testing.T) {
	t.Parallel()

	ct, err := EncryptResource(testKey, testNonce, []byte("x"), testAD)
	require.NoError(t, err)

	_, err = DecryptResource(testKey[:16], testNonce, ct, testAD)
	require.ErrorIs(t, err, ErrKeyLoad)

	_, err = DecryptResource(testKey, testNonce, "%%%", testAD)
	require.ErrorIs(t, err, ErrDecryption)

	_, err = DecryptResource(testKey, "", ct, testAD)
	require.ErrorIs(t, err, ErrDecryption)

	_, err = DecryptResource(testKey, testNonce, base64.StdEncoding.EncodeToString([]byte("short")), testAD)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSealedEnvelope_Open(t *testing.T) {
	t.Parallel()

	env, err := Seal(testKey, []byte("hello"), testAD)
	require.NoError(t, err)
	assert.Len(t, env.Nonce, NonceSize)
	assert.Equal(t, testAD, env.AssociatedData)

	got, err := env.Open(testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	other, err := Seal(testKey, []byte("hello"), testAD)
	require.NoError(t, err)
	assert.NotEqual(t, env.Nonce, other.Nonce)
}

func TestNonceFrom_DiscardsBiasedBytes(t *testing.T) {
	t.Parallel()

	src := []byte{248, 255, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	src = append(src, 61, 62)
	src = append(src, bytes.Repeat([]byte{250}, 10)...)

	nonce, err := nonceFrom(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij9a", nonce)
}

func TestNonceFrom_ShortRead(t *testing.T) {
	t.Parallel()

	_, err := nonceFrom(bytes.NewReader(bytes.Repeat([]byte{255}, NonceSize)))
	require.Error(t, err)
}

func TestRandomNonce(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 200)

	for range 200 {
		nonce, err := randomNonce()
		require.NoError(t, err)
		require.Len(t, nonce, NonceSize)

		for _, c := range nonce {
			assert.True(t, strings.ContainsRune(nonceAlphabet, c), "unexpected %q", c)
		}

		seen[nonce] = struct{}{}
	}

	assert.Len(t, seen, 200)
}
