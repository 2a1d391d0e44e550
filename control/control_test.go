package control

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	mr := NewMetricsRegistry(MetricRequests, MetricBytesRead)
	snap := mr.GetSnapshot()
	assert.Equal(t, map[string]int64{MetricRequests: 0, MetricBytesRead: 0}, snap)
	assert.True(t, mr.Updated().IsZero())

	mr.Inc(MetricRequests)
	mr.Add(MetricBytesRead, 42)
	mr.Set("active_conns", 7)
	mr.Set("active_conns", 3)

	assert.EqualValues(t, 1, mr.Value(MetricRequests))
	assert.EqualValues(t, 42, mr.Value(MetricBytesRead))
	assert.EqualValues(t, 3, mr.Value("active_conns"))
	assert.Zero(t, mr.Value("missing"))
	assert.False(t, mr.Updated().IsZero())
}

func TestMetricsConcurrentInc(t *testing.T) {
	mr := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mr.Inc(MetricRequests)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8000, mr.Value(MetricRequests))
	assert.Same(t, mr.Counter(MetricRequests), mr.Counter(MetricRequests))
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	dp.RegisterProbe("broken", func() any { panic("boom") })
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Equal(t, "boom", state["broken"])
	require.Contains(t, state, "platform.cpus")
	assert.Positive(t, state["platform.cpus"])

	dp.UnregisterProbe("broken")
	assert.NotContains(t, dp.DumpState(), "broken")
}
