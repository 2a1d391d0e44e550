// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/hioload-http/control"

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithMiddleware attaches middleware in FIFO order.
func WithMiddleware(mw ...Middleware) ServerOption {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithMetricsRegistry shares an existing registry instead of a private one.
func WithMetricsRegistry(mr *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		if mr != nil {
			s.metrics = mr
		}
	}
}

// WithDebugProbes registers the server probes on dp.
func WithDebugProbes(dp *control.DebugProbes) ServerOption {
	return func(s *Server) {
		if dp != nil {
			s.probes = dp
		}
	}
}
