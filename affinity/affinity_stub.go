//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import "github.com/momentics/hioload-http/api"

func setAffinityPlatform(cpuID int) (func(), error) {
	return nil, api.ErrNotSupported
}

func allowedCPUs() []int { return nil }
