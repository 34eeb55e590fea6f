// Package log defines the logging interface and typed logging fields used
// across lib-payscore.
//
// Adapters (such as the zap package) implement Logger so that signing,
// transport, and notification code log the same way regardless of backend.
package log
