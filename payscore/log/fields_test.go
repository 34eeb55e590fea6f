//go:build unit

package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field Field
		key   string
		value string
	}{
		{SerialNo("5157F09EFDC096DE15EBE81A47057A7232F1B8E1"), "serial_no", "5157F09EFDC096DE15EBE81A47057A7232F1B8E1"},
		{OutOrderNo("1234323JKHDFE1243252"), "out_order_no", "1234323JKHDFE1243252"},
		{NotifyID("EV-2018022511223320873"), "notify_id", "EV-2018022511223320873"},
		{MchID("1900000001"), "mchid", "1900000001"},
		{RequestID("08F78BB5AF0D11E9AB7BA1A3E7A6DD0B"), "request_id", "08F78BB5AF0D11E9AB7BA1A3E7A6DD0B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.field.Key)
		assert.Equal(t, tt.value, tt.field.Value)
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    Field
		value any
	}{
		{name: "api key", in: String("api_v3_key", "0123456789abcdef0123456789abcdef"), value: Redacted},
		{name: "authorization header", in: String("authorization", "WECHATPAY2-SHA256-RSA2048 mchid=..."), value: Redacted},
		{name: "decrypted resource", in: Any("plaintext", []byte(`{"openid":"o1"}`)), value: Redacted},
		{name: "nil secret stays nil", in: Any("passphrase", nil), value: nil},
		{name: "ordinary field", in: SerialNo("20"), value: "20"},
		{name: "error field", in: Err(errors.New("boom")), value: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Redact(tt.in)
			assert.Equal(t, tt.in.Key, got.Key)
			assert.Equal(t, tt.value, got.Value)
		})
	}
}
