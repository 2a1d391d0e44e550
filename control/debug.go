// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named debug probes for runtime inspection.

package control

import "github.com/puzpuzpuz/xsync/v4"

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	probes *xsync.Map[string, func() any]
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: xsync.NewMap[string, func() any]()}
}

// RegisterProbe inserts or replaces a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.probes.Store(name, fn)
}

// UnregisterProbe removes a named hook. Unknown names are ignored.
func (dp *DebugProbes) UnregisterProbe(name string) {
	dp.probes.Delete(name)
}

// DumpState evaluates every probe. A panicking probe reports the panic
// value instead of its result.
func (dp *DebugProbes) DumpState() map[string]any {
	out := make(map[string]any, dp.probes.Size())
	dp.probes.Range(func(k string, fn func() any) bool {
		out[k] = safeProbe(fn)
		return true
	})
	return out
}

func safeProbe(fn func() any) (v any) {
	defer func() {
		if r := recover(); r != nil {
			v = r
		}
	}()
	return fn()
}
