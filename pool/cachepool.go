// File: pool/cachepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic free list backed by a lock-free MPMC queue. Entries are held either
// strongly (Soft mode, bounded by capacity) or through weak pointers (Weak
// mode) whose reclamation is reported back by runtime cleanups.

package pool

import (
	"runtime"
	"sync/atomic"
	"weak"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/momentics/hioload-http/api"
)

// RefMode selects how the pool references cached objects. It is fixed at
// construction.
type RefMode int

const (
	// Soft keeps objects until they are taken or evicted by a full pool.
	Soft RefMode = iota
	// Weak lets the garbage collector reclaim idle objects at any time.
	Weak
)

func (m RefMode) String() string {
	if m == Weak {
		return "weak"
	}
	return "soft"
}

// DefaultCapacity bounds a pool created with a non-positive capacity.
const DefaultCapacity = 4096

// ObjectPool is the contract shared by the free lists in this package.
type ObjectPool[T any] interface {
	// Get returns a cached object, or (nil, false) on a miss.
	Get() (*T, bool)
	// Cache offers obj for later reuse.
	Cache(obj *T)
}

// slot is the indirect reference stored in the queue.
type slot[T any] struct {
	strong  *T
	weak    weak.Pointer[T]
	cleanup runtime.Cleanup
	armed   bool
}

func (s *slot[T]) value() *T {
	if s.strong != nil {
		return s.strong
	}
	return s.weak.Value()
}

// CachePool is a free list of same-typed objects. It is safe for concurrent
// use without external locking.
type CachePool[T any] struct {
	mode  RefMode
	queue *xsync.MPMCQueue[*slot[T]]
	size  atomic.Int64

	// stale counts reclamation notifications not yet purged.
	stale atomic.Int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	reclaimed atomic.Int64
}

var _ ObjectPool[struct{}] = (*CachePool[struct{}])(nil)

// NewCachePool creates a pool in the given mode that holds at most capacity
// entries.
func NewCachePool[T any](mode RefMode, capacity int) *CachePool[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &CachePool[T]{
		mode:  mode,
		queue: xsync.NewMPMCQueue[*slot[T]](capacity),
	}
}

// Mode returns the reference mode fixed at construction.
func (p *CachePool[T]) Mode() RefMode { return p.mode }

// Cache purges entries whose referent was reclaimed and enqueues obj.
// When the pool is full obj is dropped and left to the garbage collector.
func (p *CachePool[T]) Cache(obj *T) {
	if obj == nil {
		return
	}
	p.purge()

	s := &slot[T]{}
	if p.mode == Weak {
		s.weak = weak.Make(obj)
		s.cleanup = runtime.AddCleanup(obj, p.onReclaim, struct{}{})
		s.armed = true
	} else {
		s.strong = obj
	}
	if !p.queue.TryEnqueue(s) {
		s.release()
		p.evictions.Add(1)
		return
	}
	p.size.Add(1)
}

// Get dequeues entries until it finds a live object.
func (p *CachePool[T]) Get() (*T, bool) {
	for {
		s, ok := p.queue.TryDequeue()
		if !ok {
			p.misses.Add(1)
			return nil, false
		}
		p.size.Add(-1)
		if obj := s.value(); obj != nil {
			s.release()
			p.hits.Add(1)
			return obj, true
		}
		p.consumeStale()
	}
}

// Len returns the number of queued entries, including reclaimed ones that
// have not been purged yet.
func (p *CachePool[T]) Len() int {
	return int(p.size.Load())
}

// Clear drops every queued entry.
func (p *CachePool[T]) Clear() {
	for {
		s, ok := p.queue.TryDequeue()
		if !ok {
			break
		}
		p.size.Add(-1)
		s.release()
	}
	p.stale.Store(0)
}

// Stats returns a snapshot of the pool counters.
func (p *CachePool[T]) Stats() api.PoolStats {
	return api.PoolStats{
		Size:      p.Len(),
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Evictions: p.evictions.Load(),
		Reclaimed: p.reclaimed.Load(),
	}
}

// onReclaim runs on the runtime cleanup goroutine once a weakly cached
// object has been collected.
func (p *CachePool[T]) onReclaim(struct{}) {
	p.reclaimed.Add(1)
	p.stale.Add(1)
}

func (p *CachePool[T]) consumeStale() {
	for {
		n := p.stale.Load()
		if n <= 0 || p.stale.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// purge rotates the queue once when reclamation notifications are pending,
// dropping dead entries and re-enqueueing live ones.
func (p *CachePool[T]) purge() {
	pending := p.stale.Swap(0)
	if pending <= 0 {
		return
	}
	for n := p.Len(); n > 0 && pending > 0; n-- {
		s, ok := p.queue.TryDequeue()
		if !ok {
			return
		}
		if s.value() == nil {
			p.size.Add(-1)
			pending--
			continue
		}
		if !p.queue.TryEnqueue(s) {
			p.size.Add(-1)
			s.release()
			p.evictions.Add(1)
		}
	}
}

func (s *slot[T]) release() {
	if s.armed {
		s.cleanup.Stop()
		s.armed = false
	}
	s.strong = nil
}
