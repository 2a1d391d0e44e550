package pool_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/pool"
)

type item struct {
	id  int
	pad [64]byte
}

func TestCacheGetReturnsSameInstance(t *testing.T) {
	for _, mode := range []pool.RefMode{pool.Soft, pool.Weak} {
		t.Run(mode.String(), func(t *testing.T) {
			p := pool.NewCachePool[item](mode, 8)
			obj := &item{id: 42}
			p.Cache(obj)

			got, ok := p.Get()
			require.True(t, ok)
			assert.Same(t, obj, got)
			runtime.KeepAlive(obj)
		})
	}
}

func TestMissIsNotAnError(t *testing.T) {
	p := pool.NewCachePool[item](pool.Soft, 4)
	got, ok := p.Get()
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.EqualValues(t, 1, p.Stats().Misses)
}

func TestCacheNilIsIgnored(t *testing.T) {
	p := pool.NewCachePool[item](pool.Soft, 4)
	p.Cache(nil)
	assert.Equal(t, 0, p.Len())
}

func TestFullPoolEvicts(t *testing.T) {
	p := pool.NewCachePool[item](pool.Soft, 2)
	for i := 0; i < 5; i++ {
		p.Cache(&item{id: i})
	}
	assert.Equal(t, 2, p.Len())
	assert.EqualValues(t, 3, p.Stats().Evictions)

	first, ok := p.Get()
	require.True(t, ok)
	assert.Equal(t, 0, first.id)
}

func TestClear(t *testing.T) {
	p := pool.NewCachePool[item](pool.Weak, 8)
	keep := []*item{{id: 1}, {id: 2}}
	for _, it := range keep {
		p.Cache(it)
	}
	p.Clear()
	assert.Equal(t, 0, p.Len())
	_, ok := p.Get()
	assert.False(t, ok)
	runtime.KeepAlive(keep)
}

//go:noinline
func cacheUnreachable(p *pool.CachePool[item], n int) {
	for i := 0; i < n; i++ {
		p.Cache(&item{id: i})
	}
}

func TestWeakEntriesAreReclaimed(t *testing.T) {
	p := pool.NewCachePool[item](pool.Weak, 16)
	cacheUnreachable(p, 4)

	require.Eventually(t, func() bool {
		runtime.GC()
		return p.Stats().Reclaimed == 4
	}, 5*time.Second, 10*time.Millisecond)

	// Cache purges the reclaimed entries before enqueueing.
	live := &item{id: 99}
	p.Cache(live)
	assert.Equal(t, 1, p.Len())

	got, ok := p.Get()
	require.True(t, ok)
	assert.Same(t, live, got)
}

func TestSoftEntriesSurviveGC(t *testing.T) {
	p := pool.NewCachePool[item](pool.Soft, 16)
	cacheUnreachable(p, 3)
	runtime.GC()
	runtime.GC()
	for i := 0; i < 3; i++ {
		_, ok := p.Get()
		assert.True(t, ok)
	}
}

func TestConcurrentCacheGet(t *testing.T) {
	p := pool.NewCachePool[item](pool.Soft, 1024)
	const workers, rounds = 8, 2000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				obj, ok := p.Get()
				if !ok {
					obj = &item{}
				}
				obj.id++
				p.Cache(obj)
			}
		}()
	}
	wg.Wait()
	st := p.Stats()
	assert.EqualValues(t, workers*rounds, st.Hits+st.Misses)
	assert.LessOrEqual(t, int64(p.Len()), st.Misses)
}

func BenchmarkCachePoolParallel(b *testing.B) {
	for _, mode := range []pool.RefMode{pool.Soft, pool.Weak} {
		b.Run(mode.String(), func(b *testing.B) {
			p := pool.NewCachePool[item](mode, 1024)
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					obj, ok := p.Get()
					if !ok {
						obj = &item{}
					}
					p.Cache(obj)
				}
			})
		})
	}
}
