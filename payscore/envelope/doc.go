// Package envelope opens encrypted notification resources and protects short
// sensitive fields.
//
// Resources are sealed with AES-256-GCM under the merchant APIv3 key. Sensitive
// request fields such as identity numbers travel under RSA-OAEP with SHA-1 and
// MGF1-SHA1 and an empty label. SHA-1 is used here only because the gateway
// fixes that scheme on the wire.
package envelope
