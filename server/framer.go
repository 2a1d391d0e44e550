// File: server/framer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"

	"github.com/google/uuid"

	"github.com/momentics/hioload-http/core/buffer"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/protocol"
)

// readsPerWake caps the reads spent on one connection per readiness event.
// The poller is level-triggered, so unread input is reported again on the
// next wait and other connections of the reader get their turn.
const readsPerWake = 16

// framer accumulates bytes read from one connection and cuts them into
// request units.
type framer struct {
	buf     *buffer.Growable
	initial int
	// set after a rejected unit; later input on the connection is dropped
	discarding bool
}

func newFramer(capacity, increment, maxSize int) (*framer, error) {
	buf, err := buffer.New(capacity, increment, maxSize)
	if err != nil {
		return nil, err
	}
	return &framer{buf: buf, initial: capacity}, nil
}

func (f *framer) reset() {
	f.buf.Clear()
	f.discarding = false
}

// reusable reports whether the buffer is still at its initial size, so that
// pooling it does not pin grown memory.
func (f *framer) reusable() bool { return f.buf.Cap() == f.initial }

// fill performs up to readsPerWake reads from fd and feeds every chunk
// through feed. ErrWouldBlock ends a round normally and is not returned;
// errServerStopping is returned when emit refuses a request.
func (f *framer) fill(fd int, scratch []byte, connID uuid.UUID, remote string, emit func(*protocol.Request) bool) (int, error) {
	total := 0
	for i := 0; i < readsPerWake; i++ {
		n, err := transport.Read(fd, scratch)
		if n > 0 {
			total += n
			if !f.feed(scratch[:n], connID, remote, emit) {
				return total, errServerStopping
			}
		}
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}

// feed buffers p and hands every complete unit to emit as soon as it is
// buffered, so the ceiling bounds a single unit rather than a burst of
// pipelined ones. A unit still incomplete at the ceiling is emitted as a
// rejected request and the rest of the input is dropped. feed reports
// false when emit does.
func (f *framer) feed(p []byte, connID uuid.UUID, remote string, emit func(*protocol.Request) bool) bool {
	for !f.discarding {
		p = p[f.buf.Write(p):]
		for {
			req, ok := f.next(connID, remote)
			if !ok {
				break
			}
			if !emit(req) {
				return false
			}
			if req.Failed() {
				f.buf.Clear()
				f.discarding = true
				return true
			}
		}
		if len(p) == 0 {
			break
		}
	}
	return true
}

// next returns the next complete request, if any. A full buffer holding an
// incomplete unit yields a request rejected with protocol.ErrTooLarge.
// Bytes past the unit stay buffered for the following call.
func (f *framer) next(connID uuid.UUID, remote string) (*protocol.Request, bool) {
	if f.buf.IsEmpty() {
		return nil, false
	}
	b := f.buf.Bytes()
	n, ok := protocol.FrameLength(b)
	if !ok {
		if f.buf.Full() {
			raw := f.buf.Array()
			f.buf.Clear()
			return protocol.Reject(raw, connID, remote, protocol.ErrTooLarge), true
		}
		return nil, false
	}
	raw := make([]byte, n)
	copy(raw, b[:n])
	if n == len(b) {
		f.buf.Clear()
	} else {
		rest := make([]byte, len(b)-n)
		copy(rest, b[n:])
		f.buf.Clear()
		f.buf.Write(rest)
	}
	return protocol.ParseFrom(raw, connID, remote), true
}
