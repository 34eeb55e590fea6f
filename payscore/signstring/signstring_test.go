//go:build unit

package signstring

import (
	"testing"

	"github.com/LerianStudio/lib-payscore/payscore/canonical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest_PostCanonicalizesStructuredBody(t *testing.T) {
	t.Parallel()

	got, err := BuildRequest(Request{
		Method:    "POST",
		Path:      "/v3/payscore/payafter-orders",
		Timestamp: "1610000000",
		Nonce:     "abc123",
		Body:      map[string]any{"openid": "o1", "fees": nil, "out_order_no": "X1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "POST\n/v3/payscore/payafter-orders\n1610000000\nabc123\n{\"openid\":\"o1\",\"out_order_no\":\"X1\"}\n", got)
}

func TestBuildRequest_GetSignsEmptyBodyLine(t *testing.T) {
	t.Parallel()

	got, err := BuildRequest(Request{
		Method:    "GET",
		Path:      "/v3/payscore/user-service-state?openid=o1",
		Timestamp: "1610000000",
		Nonce:     "abc123",
		Body:      map[string]any{"ignored": true},
	})

	require.NoError(t, err)
	assert.Equal(t, "GET\n/v3/payscore/user-service-state?openid=o1\n1610000000\nabc123\n\n", got)
}

func TestBuildRequest_Normalization(t *testing.T) {
	t.Parallel()

	got, err := BuildRequest(Request{
		Method:    "put",
		Path:      "v3/payscore/payafter-orders/X1/modify",
		Timestamp: "1",
		Nonce:     "n",
		Body:      `{"raw" : true}`,
	})

	require.NoError(t, err)
	assert.Equal(t, "PUT\n/v3/payscore/payafter-orders/X1/modify\n1\nn\n{\"raw\" : true}\n", got)
}

func TestBuildRequest_BodyVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     any
		expected string
	}{
		{name: "nil body", body: nil, expected: ""},
		{name: "verbatim string", body: `{"b":1,"a":null}`, expected: `{"b":1,"a":null}`},
		{name: "verbatim bytes", body: []byte(`{"x":1}`), expected: `{"x":1}`},
		{name: "canonical value", body: canonical.Object(canonical.Member{Key: "b", Value: canonical.Int(1)}, canonical.Member{Key: "a", Value: canonical.Null()}), expected: `{"b":1}`},
		{name: "struct", body: struct {
			Z string `json:"z"`
			A string `json:"a"`
		}{Z: "last", A: "first"}, expected: `{"a":"first","z":"last"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildRequest(Request{Method: "POST", Path: "/p", Timestamp: "1", Nonce: "n", Body: tt.body})
			require.NoError(t, err)
			assert.Equal(t, "POST\n/p\n1\nn\n"+tt.expected+"\n", got)
		})
	}
}

func TestBuildRequest_MetaOverridesBody(t *testing.T) {
	t.Parallel()

	meta := `{"filename":"a.jpg","sha256":"abc"}`

	for _, method := range []string{"GET", "POST"} {
		got, err := BuildRequest(Request{
			Method:    method,
			Path:      "/v3/merchant/media/upload",
			Timestamp: "1",
			Nonce:     "n",
			Body:      map[string]any{"file": "binary"},
			Meta:      meta,
		})

		require.NoError(t, err)
		assert.Equal(t, method+"\n/v3/merchant/media/upload\n1\nn\n"+meta+"\n", got)
	}
}

func TestBuildRequest_UnsupportedMethod(t *testing.T) {
	t.Parallel()

	for _, method := range []string{"DELETE", "PATCH", "HEAD", ""} {
		_, err := BuildRequest(Request{Method: method, Path: "/p", Timestamp: "1", Nonce: "n"})
		require.Error(t, err, method)
		assert.ErrorIs(t, err, ErrUnsupportedMethod)
	}
}

func TestBuildRequest_BodySerializationError(t *testing.T) {
	t.Parallel()

	_, err := BuildRequest(Request{Method: "POST", Path: "/p", Timestamp: "1", Nonce: "n", Body: map[string]any{"c": make(chan int)}})
	require.Error(t, err)
	assert.ErrorIs(t, err, canonical.ErrTypeMismatch)
}

func TestRequestBody(t *testing.T) {
	t.Parallel()

	body, err := RequestBody("post", map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, body)

	body, err = RequestBody("GET", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Empty(t, body)

	_, err = RequestBody("DELETE", nil)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestBuildResponse_UsesBodyVerbatim(t *testing.T) {
	t.Parallel()

	body := `{"z":1, "a":null}`

	assert.Equal(t, "1610000000\nnonce\n"+body+"\n", BuildResponse("1610000000", "nonce", body))
	assert.Equal(t, "1\nn\n\n", BuildResponse("1", "n", ""))
}

func TestBuildRequest_MetaDoesNotBypassMethodCheck(t *testing.T) {
	t.Parallel()

	_, err := BuildRequest(Request{Method: "DELETE", Path: "/p", Timestamp: "1", Nonce: "n", Meta: `{"m":1}`})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}
