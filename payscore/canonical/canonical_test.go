//go:build unit

package canonical

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSerialize(t *testing.T, v any) string {
	t.Helper()

	out, err := Serialize(v)
	require.NoError(t, err)

	return string(out)
}

func TestSerialize_DropsNullsAndSortsKeys(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"openid":       "o1",
		"fees":         nil,
		"out_order_no": "X1",
	}

	assert.Equal(t, `{"openid":"o1","out_order_no":"X1"}`, mustSerialize(t, body))
}

func TestSerialize_Nested(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"z": map[string]any{"b": 2, "a": nil, "c": []any{map[string]any{"y": true, "x": nil}, nil, "s"}},
		"a": []any{3, 1, 2},
	}

	assert.Equal(t, `{"a":[3,1,2],"z":{"b":2,"c":[{"y":true},null,"s"]}}`, mustSerialize(t, body))
}

func TestSerialize_DeterministicAcrossKeyOrderAndNulls(t *testing.T) {
	t.Parallel()

	first := Object(
		Member{Key: "service_introduction", Value: String("ride")},
		Member{Key: "risk_fund", Value: Object(
			Member{Key: "name", Value: String("ESTIMATE_ORDER_COST")},
			Member{Key: "amount", Value: Int(100)},
		)},
	)

	second := Object(
		Member{Key: "risk_fund", Value: Object(
			Member{Key: "amount", Value: Int(100)},
			Member{Key: "description", Value: Null()},
			Member{Key: "name", Value: String("ESTIMATE_ORDER_COST")},
		)},
		Member{Key: "extra", Value: Null()},
		Member{Key: "service_introduction", Value: String("ride")},
	)

	a, err := Marshal(Canonicalize(first))
	require.NoError(t, err)
	b, err := Marshal(Canonicalize(second))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []any{
		map[string]any{"b": 1, "a": map[string]any{"d": nil, "c": []any{nil, "x"}}},
		[]any{map[string]any{"k": nil}, 1, "two"},
		"scalar",
		nil,
		map[string]any{},
	}

	for _, in := range inputs {
		value, err := FromAny(in)
		require.NoError(t, err)

		once := Canonicalize(value)
		twice := Canonicalize(once)

		assert.Equal(t, once, twice)

		onceBytes, err := Marshal(once)
		require.NoError(t, err)
		twiceBytes, err := Marshal(twice)
		require.NoError(t, err)
		assert.Equal(t, onceBytes, twiceBytes)
	}
}

func TestCanonicalize_ScalarsUnchanged(t *testing.T) {
	t.Parallel()

	for _, v := range []Value{Null(), String("s"), Int(7), Bool(false)} {
		assert.Equal(t, v, Canonicalize(v))
	}
}

func TestCanonicalize_DuplicateKeyLastWins(t *testing.T) {
	t.Parallel()

	value := Object(
		Member{Key: "k", Value: String("first")},
		Member{Key: "k", Value: String("second")},
	)

	out, err := Marshal(Canonicalize(value))
	require.NoError(t, err)
	assert.Equal(t, `{"k":"second"}`, string(out))
}

func TestCanonicalize_KeysAreCaseSensitiveBytewise(t *testing.T) {
	t.Parallel()

	out := mustSerialize(t, map[string]any{"b": 1, "B": 2, "a": 3, "_": 4})
	assert.Equal(t, `{"B":2,"_":4,"a":3,"b":1}`, out)
}

func TestSerialize_NoHTMLEscapingAndRawUTF8(t *testing.T) {
	t.Parallel()

	out := mustSerialize(t, map[string]any{"reason": "<用户取消订单> & \"quoted\""})
	assert.Equal(t, `{"reason":"<用户取消订单> & \"quoted\""}`, out)
}

func TestSerialize_Struct(t *testing.T) {
	t.Parallel()

	type location struct {
		StartLocation string `json:"start_location"`
		EndLocation   string `json:"end_location,omitempty"`
	}

	type order struct {
		OutOrderNo string    `json:"out_order_no"`
		Location   *location `json:"location"`
		Amount     int64     `json:"amount"`
		Note       *string   `json:"note"`
	}

	out := mustSerialize(t, order{
		OutOrderNo: "X1",
		Location:   &location{StartLocation: "A"},
		Amount:     1200,
	})

	assert.Equal(t, `{"amount":1200,"location":{"start_location":"A"},"out_order_no":"X1"}`, out)
}

func TestSerialize_Numbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "int", input: 42, expected: "42"},
		{name: "negative int64", input: int64(-7), expected: "-7"},
		{name: "uint64", input: uint64(math.MaxUint64), expected: "18446744073709551615"},
		{name: "float", input: 1.5, expected: "1.5"},
		{name: "json number verbatim", input: json.Number("1.50"), expected: "1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, mustSerialize(t, tt.input))
		})
	}
}

func TestFromAny_TypeMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
	}{
		{name: "channel", input: make(chan int)},
		{name: "func", input: func() {}},
		{name: "complex", input: complex(1, 2)},
		{name: "NaN", input: math.NaN()},
		{name: "infinity", input: math.Inf(1)},
		{name: "nested channel", input: map[string]any{"k": []any{make(chan int)}}},
		{name: "invalid json number", input: json.Number("12abc")},
		{name: "quoted json number", input: json.Number(`"12"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := FromAny(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestMarshal_InvalidNumberLiteral(t *testing.T) {
	t.Parallel()

	_, err := Marshal(Number("not-a-number"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestParse(t *testing.T) {
	t.Parallel()

	value, err := Parse([]byte(`{"b":[1,{"d":null,"c":1e3}],"a":"x","n":null}`))
	require.NoError(t, err)

	out, err := Marshal(Canonicalize(value))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":[1,{"c":1e3}]}`, string(out))

	_, err = Parse([]byte(`{"a":`))
	require.Error(t, err)

	_, err = Parse([]byte(`{} {}`))
	require.Error(t, err)
}

func TestValueAccessors(t *testing.T) {
	t.Parallel()

	obj := Object(Member{Key: "k", Value: String("v")}, Member{Key: "n", Value: Int(1)})

	assert.Equal(t, KindObject, obj.Kind())
	assert.Len(t, obj.Members(), 2)

	got, ok := obj.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got.Str())

	_, ok = obj.Get("missing")
	assert.False(t, ok)

	arr := Array(Bool(true), Null())
	assert.Equal(t, KindArray, arr.Kind())
	assert.True(t, arr.Items()[0].BoolValue())
	assert.True(t, arr.Items()[1].IsNull())
	assert.Equal(t, "array", arr.Kind().String())
}

func TestValueMarshalJSON(t *testing.T) {
	t.Parallel()

	value := Object(Member{Key: "b", Value: Int(2)}, Member{Key: "a", Value: Null()})

	out, err := json.Marshal(map[string]any{"wrapped": value})
	require.NoError(t, err)
	assert.Equal(t, `{"wrapped":{"b":2}}`, string(out))
}
