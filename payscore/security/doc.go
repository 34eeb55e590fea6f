// Package security decides which payload and config fields must never reach
// logs and redacts them from decoded JSON documents.
package security
