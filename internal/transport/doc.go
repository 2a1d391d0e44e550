// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking TCP socket primitives for the reactor loops: listening
// sockets, accept, per-connection tuning and EAGAIN-aware read/write on bare
// descriptors. Readiness comes from package reactor; nothing here blocks.

package transport
