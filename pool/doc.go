// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reclaimable object recycling for hioload-http.
// CachePool is a lock-free free list of interchangeable objects (framers,
// work items) whose entries may be reclaimed by the garbage collector.
// A miss is never an error; callers always keep a fresh-allocation fallback.
package pool
