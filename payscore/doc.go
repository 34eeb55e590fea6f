// Package payscore is the root of the PayScore gateway library.
//
// It holds process-level helpers shared by the subpackages: environment
// driven configuration, request-scoped logger and tracer propagation through
// context, and the nonce and timestamp values every signed request carries.
//
// The signing protocol itself lives in canonical, signstring, signature and
// envelope. client, certificate, notify and payafter build the gateway
// integration on top of them.
package payscore
