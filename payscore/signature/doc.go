// Package signature computes and verifies sign-string signatures.
//
// Two mutually exclusive modes are supported, selected by the caller from the
// configured credential:
//
//   - ModeHMAC: HMAC-SHA256 keyed by the merchant API key, uppercase hex.
//   - ModeRSA: RSA PKCS#1 v1.5 over SHA-256 with the merchant private key, base64.
//
// VerifyRSA reports a mismatch as false and never returns an error. The
// package also loads PEM keys and certificates and derives the uppercase hex
// serial number used as the key identifier header.
//
// Keys are borrowed per call; nothing in this package caches key material.
package signature
