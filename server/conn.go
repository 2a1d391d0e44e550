// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/momentics/hioload-http/internal/transport"
)

// conn is one accepted client socket.
//
// The descriptor is reference counted: the owning reader holds one
// reference and every in-flight workItem holds one. It is closed only when
// the count reaches zero, so its number cannot be reused while a worker or
// the writer may still write to it. abort never closes the descriptor; it
// shuts the socket down so the reader observes EOF and drops its reference.
type conn struct {
	id     uuid.UUID
	fd     int
	remote string
	fr     *framer

	refs     atomic.Int32
	aborted  atomic.Bool
	fdClosed atomic.Bool

	// dispatch sequence, owned by the reader
	nextSeq uint64

	mu        sync.Mutex
	nextWrite uint64
	ready     map[uint64]*workItem
	flushing  bool
	backlog   int // items owned by the writer
}

func newConn(fd int, remote string, fr *framer) *conn {
	c := &conn{
		id:     uuid.New(),
		fd:     fd,
		remote: remote,
		fr:     fr,
	}
	c.refs.Store(1)
	return c
}

func (c *conn) acquire() { c.refs.Add(1) }

// release drops one reference and reports whether it was the last.
func (c *conn) release() bool {
	return c.refs.Add(-1) == 0
}

// abort marks the connection dead and shuts the socket down once.
func (c *conn) abort() {
	if c.aborted.CompareAndSwap(false, true) {
		_ = transport.Shutdown(c.fd)
	}
}

func (c *conn) isAborted() bool { return c.aborted.Load() }

// closeFD closes the descriptor exactly once and reports whether this call
// did it.
func (c *conn) closeFD() (bool, error) {
	if !c.fdClosed.CompareAndSwap(false, true) {
		return false, nil
	}
	c.aborted.Store(true)
	return true, transport.Close(c.fd)
}

func (c *conn) String() string {
	return c.remote + " (" + c.id.String() + ")"
}
