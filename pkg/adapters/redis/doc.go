// Package redis stores flow execution snapshots in Redis and provides a
// Redis-backed distributed lock so several engine instances can share them.
package redis
