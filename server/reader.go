// File: server/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"io"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/reactor"
)

// reader owns a set of connections: it polls them for input, frames
// requests and feeds the work queue.
//
// Registration is a command: other goroutines enqueue the connection and
// wake the poller, and the reader's own loop performs the epoll add between
// waits. Readiness handling and registration therefore never overlap.
type reader struct {
	id      int
	srv     *Server
	poller  *reactor.Poller
	scratch []byte

	mu      sync.Mutex
	cmds    *queue.Queue
	stopped bool

	conns map[int]*conn
}

func newReader(id int, srv *Server) (*reader, error) {
	p, err := reactor.NewPoller(reactor.DefaultMaxEvents)
	if err != nil {
		return nil, err
	}
	return &reader{
		id:      id,
		srv:     srv,
		poller:  p,
		scratch: make([]byte, srv.cfg.ReadChunk),
		cmds:    queue.New(),
		conns:   make(map[int]*conn),
	}, nil
}

// register hands c to this reader. Safe from any goroutine.
func (r *reader) register(c *conn) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.srv.releaseConn(c)
		return
	}
	r.cmds.Add(c)
	r.mu.Unlock()
	if err := r.poller.Wake(); err != nil {
		r.srv.log.Debugf("reader %d: wake: %v", r.id, err)
	}
}

func (r *reader) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmds.Length()
}

func (r *reader) takeCommands() []*conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmds.Length() == 0 {
		return nil
	}
	out := make([]*conn, 0, r.cmds.Length())
	for r.cmds.Length() > 0 {
		out = append(out, r.cmds.Remove().(*conn))
	}
	return out
}

func (r *reader) applyCommands() {
	for _, c := range r.takeCommands() {
		if err := r.poller.Add(c.fd, reactor.EventRead); err != nil {
			r.srv.log.Warnf("reader %d: register %s: %v", r.id, c, err)
			r.srv.releaseConn(c)
			continue
		}
		r.conns[c.fd] = c
	}
}

func (r *reader) loop() {
	defer r.srv.wg.Done()
	defer r.srv.pin("reader", r.id)()
	defer r.stop()
	for r.srv.running.Load() {
		r.round()
	}
}

// round runs one registration drain and one poll wait. Panics are logged
// and the loop continues.
func (r *reader) round() {
	defer func() {
		if rec := recover(); rec != nil {
			r.srv.log.Errorf("reader %d: recovered: %v", r.id, rec)
		}
	}()
	r.applyCommands()
	if _, err := r.poller.Wait(r.srv.cfg.PollTimeout, r.onReady); err != nil && r.srv.running.Load() {
		r.srv.log.Errorf("reader %d: poll: %v", r.id, err)
	}
}

func (r *reader) onReady(fd int, ev reactor.Events) {
	c, ok := r.conns[fd]
	if !ok {
		return
	}
	n, err := c.fr.fill(fd, r.scratch, c.id, c.remote, func(req *protocol.Request) bool {
		return r.srv.dispatch(c, req)
	})
	if n > 0 {
		r.srv.metrics.Add(control.MetricBytesRead, int64(n))
	}
	if err != nil || ev.Has(reactor.EventError) {
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, errServerStopping) {
			r.srv.log.Debugf("reader %d: %s: %v", r.id, c, err)
		}
		r.closeConn(c)
	}
}

// closeConn drops the reader's ownership of c. The descriptor itself stays
// open until in-flight responses are done with it.
func (r *reader) closeConn(c *conn) {
	delete(r.conns, c.fd)
	if err := r.poller.Remove(c.fd); err != nil && !errors.Is(err, reactor.ErrNotRegistered) {
		r.srv.log.Debugf("reader %d: unregister %s: %v", r.id, c, err)
	}
	r.srv.releaseConn(c)
}

// stop releases every owned and queued connection. Called once the loop
// has exited.
func (r *reader) stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	for _, c := range r.takeCommands() {
		r.srv.releaseConn(c)
	}
	for _, c := range r.conns {
		r.closeConn(c)
	}
	if err := r.poller.Close(); err != nil {
		r.srv.log.Warnf("reader %d: close poller: %v", r.id, err)
	}
}
