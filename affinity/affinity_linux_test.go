//go:build linux

package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPinBindsAndRestores(t *testing.T) {
	var before unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &before))
	cpu := -1
	for i := 0; i < 1024; i++ {
		if before.IsSet(i) {
			cpu = i
			break
		}
	}
	if cpu < 0 {
		t.Skip("no usable cpu in affinity mask")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		unpin, err := Pin(cpu)
		require.NoError(t, err)

		var pinned unix.CPUSet
		require.NoError(t, unix.SchedGetaffinity(0, &pinned))
		assert.Equal(t, 1, pinned.Count())
		assert.True(t, pinned.IsSet(cpu))

		unpin()
		var after unix.CPUSet
		require.NoError(t, unix.SchedGetaffinity(0, &after))
		assert.Equal(t, before.Count(), after.Count())
	}()
	<-done
}

func TestCPUsMatchesMask(t *testing.T) {
	var mask unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &mask))
	cpus := CPUs()
	assert.Len(t, cpus, mask.Count())
	for _, c := range cpus {
		assert.True(t, mask.IsSet(c), c)
	}
}
