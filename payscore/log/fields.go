package log

import (
	"time"

	"github.com/LerianStudio/lib-payscore/payscore/security"
)

// Field is one key/value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

// Any attaches an arbitrary value. Secrets must go through a key listed in
// sensitiveKeys so backends mask them.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err attaches err under the "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Keys shared by every package so one query finds a request end to end.
const (
	KeySerialNo   = "serial_no"
	KeyOutOrderNo = "out_order_no"
	KeyNotifyID   = "notify_id"
	KeyMchID      = "mchid"
	KeyRequestID  = "request_id"
)

// SerialNo tags a certificate serial, ours or the platform's.
func SerialNo(serial string) Field { return String(KeySerialNo, serial) }

// OutOrderNo tags the merchant order number.
func OutOrderNo(outOrderNo string) Field { return String(KeyOutOrderNo, outOrderNo) }

// NotifyID tags the id of a callback notification.
func NotifyID(id string) Field { return String(KeyNotifyID, id) }

// MchID tags the merchant id.
func MchID(mchID string) Field { return String(KeyMchID, mchID) }

// RequestID tags the Request-ID the gateway returns with every reply.
func RequestID(id string) Field { return String(KeyRequestID, id) }

// Redacted replaces the value of any sensitive field.
const Redacted = security.Redacted

// sensitiveKeys is narrower than security.IsSensitiveField so that keys
// such as lock_key stay readable.
var sensitiveKeys = map[string]struct{}{
	"api_v3_key":    {},
	"apiv3_key":     {},
	"private_key":   {},
	"passphrase":    {},
	"hmac_secret":   {},
	"authorization": {},
	"signature":     {},
	"plaintext":     {},
}

// Redact masks f when its key names merchant key material or decrypted
// notification content.
func Redact(f Field) Field {
	if _, ok := sensitiveKeys[f.Key]; ok && f.Value != nil {
		return Field{Key: f.Key, Value: Redacted}
	}

	return f
}
