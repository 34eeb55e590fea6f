package payscore

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewNonce returns a 32 character random string for the nonce_str field.
func NewNonce() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Timestamp formats t as decimal Unix seconds.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
