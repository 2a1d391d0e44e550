// File: server/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/reactor"
)

// writer finishes responses the workers could not write in one go. It
// keeps a FIFO of items per descriptor and writes them as the socket
// becomes writable.
type writer struct {
	srv    *Server
	poller *reactor.Poller

	mu       sync.Mutex
	incoming *queue.Queue
	stopped  bool

	// owned by the loop
	pending    map[int]*queue.Queue
	registered map[int]bool
}

func newWriter(srv *Server) (*writer, error) {
	p, err := reactor.NewPoller(reactor.DefaultMaxEvents)
	if err != nil {
		return nil, err
	}
	return &writer{
		srv:        srv,
		poller:     p,
		incoming:   queue.New(),
		pending:    make(map[int]*queue.Queue),
		registered: make(map[int]bool),
	}, nil
}

// enqueue transfers ownership of it to the writer. Safe from any goroutine.
func (w *writer) enqueue(it *workItem) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.srv.writeDropped(it)
		return
	}
	w.incoming.Add(it)
	w.mu.Unlock()
	w.srv.metrics.Inc(control.MetricAsyncWrites)
	if err := w.poller.Wake(); err != nil {
		w.srv.log.Debugf("writer: wake: %v", err)
	}
}

func (w *writer) depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.incoming.Length()
}

func (w *writer) takeIncoming() []*workItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.incoming.Length() == 0 {
		return nil
	}
	out := make([]*workItem, 0, w.incoming.Length())
	for w.incoming.Length() > 0 {
		out = append(out, w.incoming.Remove().(*workItem))
	}
	return out
}

func (w *writer) loop() {
	defer w.srv.wg.Done()
	defer w.stop()
	for w.srv.running.Load() {
		w.round()
	}
}

func (w *writer) round() {
	defer func() {
		if rec := recover(); rec != nil {
			w.srv.log.Errorf("writer: recovered: %v", rec)
		}
	}()
	for _, it := range w.takeIncoming() {
		w.accept(it)
	}
	if _, err := w.poller.Wait(w.srv.cfg.PollTimeout, w.onReady); err != nil && w.srv.running.Load() {
		w.srv.log.Errorf("writer: poll: %v", err)
	}
}

// accept appends it to its descriptor's FIFO and arms write interest.
func (w *writer) accept(it *workItem) {
	fd := it.conn.fd
	q, ok := w.pending[fd]
	if !ok {
		q = queue.New()
		w.pending[fd] = q
	}
	q.Add(it)
	if q.Length() > 1 {
		return
	}
	if err := w.arm(fd, reactor.EventWrite); err != nil {
		w.srv.log.Warnf("writer: arm %s: %v", it.conn, err)
		w.failAll(fd, err)
	}
}

// arm sets the interest of fd, adding it on first use. Descriptor numbers
// are recycled by the kernel, so a stale registration in either direction
// is retried with the other operation.
func (w *writer) arm(fd int, ev reactor.Events) error {
	var err error
	if w.registered[fd] {
		if err = w.poller.Modify(fd, ev); errors.Is(err, reactor.ErrNotRegistered) {
			err = w.poller.Add(fd, ev)
		}
	} else {
		if err = w.poller.Add(fd, ev); errors.Is(err, reactor.ErrAlreadyRegistered) {
			err = w.poller.Modify(fd, ev)
		}
	}
	w.registered[fd] = err == nil
	return err
}

func (w *writer) onReady(fd int, ev reactor.Events) {
	q, ok := w.pending[fd]
	if !ok {
		w.disarm(fd)
		return
	}
	for q.Length() > 0 {
		it := q.Peek().(*workItem)
		if it.conn.isAborted() {
			q.Remove()
			w.srv.writeDropped(it)
			continue
		}
		for !it.done() {
			n, err := transport.Write(fd, it.remaining())
			it.off += n
			if n > 0 {
				w.srv.metrics.Add(control.MetricBytesWritten, int64(n))
			}
			if err != nil {
				if errors.Is(err, transport.ErrWouldBlock) {
					return
				}
				q.Remove()
				w.srv.backlogDone(it.conn)
				w.srv.writeFailed(it, err)
				w.failAll(fd, err)
				return
			}
		}
		q.Remove()
		w.srv.backlogDone(it.conn)
		w.srv.written(it)
	}
	delete(w.pending, fd)
	w.disarm(fd)
}

// disarm removes fd from the poller. An empty interest set is not enough:
// epoll still reports errors and hangups for it, and a reset peer would
// then wake the writer on every wait until the descriptor is closed.
func (w *writer) disarm(fd int) {
	err := w.poller.Remove(fd)
	delete(w.registered, fd)
	if err != nil && !errors.Is(err, reactor.ErrNotRegistered) {
		w.srv.log.Debugf("writer: disarm fd %d: %v", fd, err)
	}
}

// failAll drops every pending item of fd.
func (w *writer) failAll(fd int, err error) {
	q, ok := w.pending[fd]
	if !ok {
		return
	}
	delete(w.pending, fd)
	w.srv.log.Debugf("writer: dropping %d items on fd %d: %v", q.Length(), fd, err)
	for q.Length() > 0 {
		it := q.Remove().(*workItem)
		it.conn.abort()
		w.srv.writeDropped(it)
	}
	if w.registered[fd] {
		w.disarm(fd)
	}
}

func (w *writer) stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	for _, it := range w.takeIncoming() {
		w.srv.writeDropped(it)
	}
	for fd := range w.pending {
		w.failAll(fd, errServerStopping)
	}
	if err := w.poller.Close(); err != nil {
		w.srv.log.Warnf("writer: close poller: %v", err)
	}
}
