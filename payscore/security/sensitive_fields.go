package security

import (
	"regexp"
	"strings"
	"unicode"
)

// Redacted replaces the value of every sensitive field.
const Redacted = "[REDACTED]"

// Field names whose values are credentials or personal data on the payment gateway.
var sensitiveFields = []string{
	"api_key",
	"apiv3_key",
	"private_key",
	"secret",
	"password",
	"passphrase",
	"authorization",
	"signature",
	"ciphertext",
	"plaintext",
	"openid",
	"id_card",
	"id_card_number",
	"mobile",
	"phone",
	"finish_ticket",
	"key",
	"auth",
}

// exactOnly holds tokens too short to match as substrings.
var exactOnly = map[string]bool{
	"key":  true,
	"auth": true,
}

var sensitiveSet = func() map[string]bool {
	set := make(map[string]bool, len(sensitiveFields))
	for _, f := range sensitiveFields {
		set[f] = true
	}

	return set
}()

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// SensitiveFields returns a copy of the field list.
func SensitiveFields() []string {
	return append([]string(nil), sensitiveFields...)
}

// snakeCase turns "apiV3Key" into "api_v3_key" and "IDCard" into "id_card".
func snakeCase(name string) string {
	var b strings.Builder

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}

		b.WriteRune(r)
	}

	return strings.ToLower(b.String())
}

// IsSensitiveField reports whether a field named fieldName must be redacted.
// Matching ignores case and camelCase, and long names match on word boundaries.
func IsSensitiveField(fieldName string) bool {
	normalized := snakeCase(fieldName)
	if sensitiveSet[strings.ToLower(fieldName)] || sensitiveSet[normalized] {
		return true
	}

	tokens := tokenSplit.Split(normalized, -1)
	joined := strings.Join(tokens, "_")

	for _, f := range sensitiveFields {
		if exactOnly[f] {
			for _, tok := range tokens {
				if tok == f {
					return true
				}
			}

			continue
		}

		if hasWord(joined, f) {
			return true
		}
	}

	return false
}

func hasWord(field, word string) bool {
	for start := 0; start < len(field); {
		idx := strings.Index(field[start:], word)
		if idx < 0 {
			return false
		}

		begin := start + idx
		end := begin + len(word)

		if (begin == 0 || field[begin-1] == '_') && (end == len(field) || field[end] == '_') {
			return true
		}

		start = begin + 1
	}

	return false
}

// Redact returns a copy of a decoded JSON document with sensitive values
// replaced. Only map[string]any and []any are traversed; other values are
// returned unchanged.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))

		for k, val := range t {
			if IsSensitiveField(k) {
				out[k] = Redacted
				continue
			}

			out[k] = Redact(val)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}

		return out
	default:
		return v
	}
}
