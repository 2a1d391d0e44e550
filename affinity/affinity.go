// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread and binds that thread to
// the logical CPU cpuID. The returned function undoes both. On unsupported
// platforms the goroutine is still locked and the error reports that
// binding is unavailable.
func Pin(cpuID int) (unpin func(), err error) {
	runtime.LockOSThread()
	restore, err := setAffinityPlatform(cpuID)
	return func() {
		if restore != nil {
			restore()
		}
		runtime.UnlockOSThread()
	}, err
}

// CPUs lists the logical CPUs the process may run on.
func CPUs() []int {
	if cpus := allowedCPUs(); len(cpus) > 0 {
		return cpus
	}
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}
