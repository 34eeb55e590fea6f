// Package backoff computes retry delays for gateway calls.
package backoff
