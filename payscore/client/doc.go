// Package client is the signing HTTP transport for the PayScore gateway.
//
// Every request is signed over its method, URL path with query, timestamp,
// nonce and canonical body, and the exact signed bytes are sent. Responses
// are verified against the platform certificates before they are decoded.
// Server errors and network failures are retried with jittered exponential
// backoff behind a per-host circuit breaker; 4xx responses are returned as
// *APIError without retry.
package client
