// Package circuitbreaker fails gateway calls fast once a host keeps failing.
//
// Breakers are created lazily per service name, normally the gateway host,
// and wrap sony/gobreaker. State changes are logged and fanned out to
// registered listeners.
package circuitbreaker
