// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

// PoolStats aggregates object cache pool accounting.
type PoolStats struct {
	Size      int   // entries currently queued (live or not yet purged)
	Hits      int64 // Get calls that returned a live object
	Misses    int64 // Get calls that found nothing usable
	Evictions int64 // Cache calls dropped because the pool was full
	Reclaimed int64 // entries whose referent was collected by the GC
}
