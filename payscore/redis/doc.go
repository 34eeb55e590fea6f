// Package redis wraps a go-redis universal client for the platform
// certificate cache. Connections are verified with PING and re-established
// lazily after Close or a failed dial.
//
// LockManager provides RedLock mutual exclusion on top of the same client so
// several instances can coordinate certificate downloads.
package redis
