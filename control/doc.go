// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the server.
//
// Provides concurrent-safe primitives:
//   - a registry of named lock-free counters and gauges
//   - named debug probes evaluated on demand
//   - platform probes registered per build target
package control
