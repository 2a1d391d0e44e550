// File: server/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"net/http"

	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/protocol"
)

// dispatch queues req for the workers. A full queue blocks the calling
// reader until a worker frees a slot or the server stops. It reports false
// when the server is stopping and the request was dropped.
func (s *Server) dispatch(c *conn, req *protocol.Request) bool {
	it := s.getItem()
	it.conn = c
	it.req = req
	it.seq = c.nextSeq
	c.nextSeq++
	c.acquire()

	if req.Failed() {
		s.metrics.Inc(control.MetricParseFailures)
	}
	select {
	case s.work <- it:
		return true
	default:
	}
	s.metrics.Inc(control.MetricQueueFull)
	select {
	case s.work <- it:
		return true
	case <-s.done:
		s.finish(it)
		return false
	}
}

func (s *Server) workerLoop(id int) {
	defer s.wg.Done()
	defer s.pin("worker", id)()
	for {
		select {
		case <-s.done:
			return
		case it := <-s.work:
			s.process(id, it)
		}
	}
}

// process answers one request and hands the bytes to deliver.
func (s *Server) process(id int, it *workItem) {
	delivered := false
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Errorf("worker %d: recovered: %v", id, rec)
			it.conn.abort()
			if !delivered {
				// keep the connection's sequence moving
				it.req, it.out, it.off = nil, nil, 0
				s.deliver(it)
			}
		}
	}()

	req := it.req
	var resp protocol.Response
	var connection string
	if code, ok := protocol.Check(req); !ok {
		s.metrics.Inc(control.MetricRejected)
		s.log.Debugf("worker %d: rejected %s with %d", id, req, code)
		resp = protocol.Error(code)
		connection = "close"
		it.closeAfter = true
	} else {
		s.metrics.Inc(control.MetricRequests)
		resp = s.invoke(req)
		it.closeAfter = !req.KeepAlive()
		connection = connectionValue(req, it.closeAfter)
	}

	it.out = s.render(resp, connection)
	it.req = nil
	if s.cfg.AccessLog {
		if req.Failed() {
			s.log.Access("-", "-", statusCode(it.out))
		} else {
			s.log.Access(req.Method(), req.URL(), statusCode(it.out))
		}
	}
	delivered = true
	s.deliver(it)
}

// render serializes resp, adding the Connection header for HTTPResponse
// values. A Response whose serialization panics is replaced by 500.
func (s *Server) render(resp protocol.Response, connection string) (out []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.Inc(control.MetricHandlerFaults)
			s.log.Errorf("response serialization: %v", rec)
			out = protocol.Error(http.StatusInternalServerError).Encode(connection)
		}
	}()
	if hr, ok := resp.(*protocol.HTTPResponse); ok {
		return hr.Encode(connection)
	}
	return resp.Bytes()
}

// invoke runs the handler, turning panics and nil responses into 500.
func (s *Server) invoke(req *protocol.Request) (resp protocol.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.Inc(control.MetricHandlerFaults)
			s.log.Errorf("handler panic on %s: %v", req, rec)
			resp = protocol.Error(http.StatusInternalServerError)
		}
	}()
	resp = s.handler.Handle(req)
	if resp == nil {
		s.metrics.Inc(control.MetricHandlerFaults)
		s.log.Warnf("handler returned no response for %s", req)
		resp = protocol.Error(http.StatusInternalServerError)
	}
	return resp
}

// connectionValue is the Connection header the engine adds to a response:
// "close" when the connection ends after it, "keep-alive" for a persistent
// HTTP/1.0 connection, nothing otherwise.
func connectionValue(req *protocol.Request, closeAfter bool) string {
	switch {
	case closeAfter:
		return "close"
	case req.Proto() == protocol.ProtoHTTP10:
		return "keep-alive"
	}
	return ""
}

// statusCode reads the status code from a serialized status line.
func statusCode(out []byte) int {
	code := 0
	i := 0
	for i < len(out) && out[i] != ' ' {
		i++
	}
	for i++; i < len(out) && out[i] >= '0' && out[i] <= '9'; i++ {
		code = code*10 + int(out[i]-'0')
	}
	return code
}

// deliver emits responses of a connection in dispatch order. Completed
// items wait in conn.ready until their turn; a single goroutine flushes at a
// time. While the writer owns earlier output for the connection, later
// items go straight to the writer so bytes never interleave.
func (s *Server) deliver(it *workItem) {
	c := it.conn
	c.mu.Lock()
	if c.ready == nil {
		c.ready = make(map[uint64]*workItem)
	}
	c.ready[it.seq] = it
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for {
		next, ok := c.ready[c.nextWrite]
		if !ok {
			c.flushing = false
			c.mu.Unlock()
			return
		}
		delete(c.ready, c.nextWrite)
		c.nextWrite++

		switch {
		case c.isAborted():
			c.mu.Unlock()
			s.finish(next)
		case c.backlog > 0:
			c.backlog++
			c.mu.Unlock()
			s.writer.enqueue(next)
		default:
			c.mu.Unlock()
			if !s.writeSync(next) {
				c.mu.Lock()
				c.backlog++
				c.mu.Unlock()
				s.writer.enqueue(next)
			}
		}
		c.mu.Lock()
	}
}

// writeSync writes it in WriteChunk slices until done or the socket is
// full. It returns false when a remainder is left for the writer; otherwise
// the item has been finished.
func (s *Server) writeSync(it *workItem) bool {
	c := it.conn
	for !it.done() {
		chunk := it.remaining()
		if len(chunk) > s.cfg.WriteChunk {
			chunk = chunk[:s.cfg.WriteChunk]
		}
		n, err := transport.Write(c.fd, chunk)
		it.off += n
		if n > 0 {
			s.metrics.Add(control.MetricBytesWritten, int64(n))
		}
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return false
			}
			s.writeFailed(it, err)
			return true
		}
	}
	s.written(it)
	return true
}

func (s *Server) writeFailed(it *workItem, err error) {
	s.metrics.Inc(control.MetricWriteErrors)
	s.log.Debugf("write %s: %v", it.conn, err)
	it.conn.abort()
	s.finish(it)
}

// written completes a fully sent item.
func (s *Server) written(it *workItem) {
	if it.closeAfter {
		it.conn.abort()
	}
	s.finish(it)
}

// finish drops the item's connection reference and recycles it.
func (s *Server) finish(it *workItem) {
	if c := it.conn; c != nil {
		s.releaseConn(c)
	}
	s.putItem(it)
}

func (s *Server) getItem() *workItem {
	if it, ok := s.items.Get(); ok {
		return it
	}
	s.metrics.Inc(control.MetricPoolMisses)
	return new(workItem)
}

func (s *Server) putItem(it *workItem) {
	it.reset()
	s.items.Cache(it)
}

var errServerStopping = errors.New("server: stopping")
