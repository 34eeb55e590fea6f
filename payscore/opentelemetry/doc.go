// Package opentelemetry holds the span and propagation helpers shared by the
// gateway client, the notification handler and the redis wrapper.
package opentelemetry
