// Package memory provides in-process implementations of the storage ports:
// a SnapshotStore backed by a map and a keyed Locker.
package memory
