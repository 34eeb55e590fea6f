// Package signstring assembles the exact newline-terminated strings that are
// signed for outgoing requests and verified for incoming responses.
//
// Request sign-string:
//
//	METHOD\n
//	/path?query\n
//	timestamp\n
//	nonce\n
//	body\n
//
// Response sign-string:
//
//	timestamp\n
//	nonce\n
//	body\n
//
// The package performs no cryptography; see the signature package.
package signstring
