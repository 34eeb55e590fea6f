// Package zap provides the zap-backed implementation of payscore/log.Logger.
//
// Entries are JSON encoded, teed into the OpenTelemetry log bridge, and
// annotated with trace_id/span_id when the context carries an active span.
package zap
