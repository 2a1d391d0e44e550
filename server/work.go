// File: server/work.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/hioload-http/protocol"

// workItem carries one request from a reader to a worker, and its
// serialized response from the worker to the socket or the writer. It is
// owned by exactly one goroutine at a time.
type workItem struct {
	conn *conn
	seq  uint64

	req *protocol.Request

	out        []byte
	off        int
	closeAfter bool
}

func (it *workItem) remaining() []byte { return it.out[it.off:] }

func (it *workItem) done() bool { return it.off >= len(it.out) }

func (it *workItem) reset() {
	*it = workItem{}
}
