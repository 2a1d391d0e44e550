// File: server/server.go
// Package server implements the HTTP/1.x reactor: one acceptor, N readers,
// N workers and one asynchronous writer sharing a running flag.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/momentics/hioload-http/affinity"
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/logger"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/pool"
	"github.com/momentics/hioload-http/reactor"
)

const (
	stateNew int32 = iota
	stateRunning
	stateClosed
)

// Server is the reactor engine.
type Server struct {
	cfg        *Config
	handler    Handler
	middleware []Middleware
	log        logger.Logger

	metrics    *control.MetricsRegistry
	probes     *control.DebugProbes
	probeNames []string

	state   atomic.Int32
	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	stopMu  sync.Mutex

	lfd      int
	port     int
	acceptor *reactor.Poller
	readers  []*reader
	writer   *writer
	next     atomic.Uint32
	cpus     []int

	work    chan *workItem
	conns   *xsync.Map[uuid.UUID, *conn]
	framers *pool.CachePool[framer]
	items   *pool.CachePool[workItem]
}

// NewServer validates cfg and prepares a server for h. Nothing is bound
// until Start. A nil cfg means DefaultConfig.
func NewServer(cfg *Config, h Handler, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if h == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "server: nil handler")
	}
	c := cfg.withDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     c,
		log:     c.Logger,
		done:    make(chan struct{}),
		lfd:     -1,
		work:    make(chan *workItem, c.QueueSize),
		conns:   xsync.NewMap[uuid.UUID, *conn](),
		framers: pool.NewCachePool[framer](c.PoolMode, c.PoolCapacity),
		items:   pool.NewCachePool[workItem](c.PoolMode, c.PoolCapacity),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry(
			control.MetricConnsAccepted, control.MetricConnsClosed, control.MetricRequests,
			control.MetricParseFailures, control.MetricHandlerFaults, control.MetricAsyncWrites,
			control.MetricWriteErrors, control.MetricQueueFull, control.MetricBytesRead,
			control.MetricBytesWritten, control.MetricPoolMisses, control.MetricRejected,
		)
	}
	if s.probes == nil {
		s.probes = control.NewDebugProbes()
	}
	s.handler = NewHandlerChain(h, s.middleware...)
	if c.PinLoops {
		s.cpus = affinity.CPUs()
	}
	s.registerProbes()
	return s, nil
}

func (s *Server) registerProbes() {
	s.probe("queue_depth", func() any { return len(s.work) })
	s.probe("active_conns", func() any { return s.conns.Size() })
	s.probe("framer_pool", func() any { return s.framers.Stats() })
	s.probe("item_pool", func() any { return s.items.Stats() })
	s.probe("writer_incoming", func() any {
		if s.writer == nil {
			return 0
		}
		return s.writer.depth()
	})
	s.probe("reader_registrations", func() any {
		n := 0
		for _, r := range s.readers {
			n += r.pending()
		}
		return n
	})
	control.RegisterPlatformProbes(s.probes)
}

func (s *Server) probe(name string, fn func() any) {
	s.probes.RegisterProbe(name, fn)
	s.probeNames = append(s.probeNames, name)
}

// unregisterProbes drops the probes that reference this server, so a
// registry shared through WithDebugProbes does not pin a stopped server.
func (s *Server) unregisterProbes() {
	for _, name := range s.probeNames {
		s.probes.UnregisterProbe(name)
	}
	s.probeNames = nil
}

// Start binds the listener and launches every loop. It returns once the
// server accepts connections.
func (s *Server) Start() error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if !s.state.CompareAndSwap(stateNew, stateRunning) {
		if s.state.Load() == stateClosed {
			return api.ErrServerClosed
		}
		return api.ErrAlreadyRunning
	}
	if err := s.open(); err != nil {
		s.cleanup()
		s.state.Store(stateClosed)
		return err
	}

	s.running.Store(true)
	s.wg.Add(2 + 2*len(s.readers))
	go s.acceptLoop()
	go s.writer.loop()
	for i, r := range s.readers {
		go r.loop()
		go s.workerLoop(i)
	}
	s.log.Infof("listening on %s (%d readers, %d workers, queue %d)",
		s.Addr(), len(s.readers), len(s.readers), s.cfg.QueueSize)
	return nil
}

func (s *Server) open() error {
	lfd, err := transport.Listen(s.cfg.Host, s.cfg.bindPort(), s.cfg.Backlog)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	s.lfd = lfd
	if s.port, err = transport.LocalPort(lfd); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if s.acceptor, err = reactor.NewPoller(16); err != nil {
		return fmt.Errorf("server: acceptor poller: %w", err)
	}
	if err = s.acceptor.Add(lfd, reactor.EventRead); err != nil {
		return fmt.Errorf("server: acceptor register: %w", err)
	}
	if s.writer, err = newWriter(s); err != nil {
		return fmt.Errorf("server: writer poller: %w", err)
	}
	for i := 0; i < s.cfg.Threads; i++ {
		r, err := newReader(i, s)
		if err != nil {
			return fmt.Errorf("server: reader %d poller: %w", i, err)
		}
		s.readers = append(s.readers, r)
	}
	return nil
}

// cleanup releases what a failed open left behind.
func (s *Server) cleanup() {
	if s.acceptor != nil {
		s.acceptor.Close()
	}
	if s.writer != nil {
		s.writer.poller.Close()
	}
	for _, r := range s.readers {
		r.poller.Close()
	}
	if s.lfd >= 0 {
		transport.Close(s.lfd)
		s.lfd = -1
	}
}

// Run starts the server and blocks until ctx is cancelled or Shutdown is
// called elsewhere. It shuts the server down on cancellation.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return s.Shutdown()
	case <-s.done:
		return api.ErrServerClosed
	}
}

// Shutdown stops every loop, waits for them and closes all connections.
// Handler calls already running complete; queued requests are dropped.
func (s *Server) Shutdown() error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	switch s.state.Swap(stateClosed) {
	case stateClosed:
		return nil
	case stateNew:
		close(s.done)
		s.unregisterProbes()
		return nil
	}

	s.running.Store(false)
	close(s.done)
	s.acceptor.Wake()
	s.writer.poller.Wake()
	for _, r := range s.readers {
		r.poller.Wake()
	}
	s.wg.Wait()

drain:
	for {
		select {
		case it := <-s.work:
			it.conn.abort()
			s.finish(it)
		default:
			break drain
		}
	}

	var errs []error
	s.conns.Range(func(_ uuid.UUID, c *conn) bool {
		if err := s.closeConn(c); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	if err := transport.Close(s.lfd); err != nil {
		errs = append(errs, err)
	}
	s.framers.Clear()
	s.items.Clear()
	s.unregisterProbes()
	s.log.Infof("server on %s stopped", s.Addr())
	if len(errs) > 0 {
		return fmt.Errorf("server: shutdown: %w", errs[0])
	}
	return nil
}

// pin binds the calling loop to a CPU when PinLoops is set and returns the
// matching release.
func (s *Server) pin(role string, id int) func() {
	if len(s.cpus) == 0 {
		return func() {}
	}
	cpu := s.cpus[id%len(s.cpus)]
	unpin, err := affinity.Pin(cpu)
	if err != nil {
		s.log.Warnf("%s %d: pin to cpu %d: %v", role, id, cpu, err)
	}
	return unpin
}

// releaseConn drops one reference to c and closes it on the last one.
func (s *Server) releaseConn(c *conn) {
	if !c.release() {
		return
	}
	if err := s.closeConn(c); err != nil {
		s.log.Debugf("close %s: %v", c, err)
	}
}

func (s *Server) closeConn(c *conn) error {
	closed, err := c.closeFD()
	if !closed {
		return nil
	}
	s.conns.Delete(c.id)
	s.metrics.Inc(control.MetricConnsClosed)
	if fr := c.fr; fr != nil && c.refs.Load() <= 0 {
		c.fr = nil
		if fr.reusable() {
			fr.reset()
			s.framers.Cache(fr)
		}
	}
	return err
}

// backlogDone records that the writer no longer owns an item of c.
func (s *Server) backlogDone(c *conn) {
	c.mu.Lock()
	c.backlog--
	c.mu.Unlock()
}

// writeDropped finishes a writer-owned item without writing it.
func (s *Server) writeDropped(it *workItem) {
	s.backlogDone(it.conn)
	s.finish(it)
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	host := s.cfg.Host
	if s.port > 0 {
		return net.JoinHostPort(host, strconv.Itoa(s.port))
	}
	return s.cfg.Addr()
}

// Port returns the bound port, 0 before Start.
func (s *Server) Port() int { return s.port }

// Connections returns the number of open client connections.
func (s *Server) Connections() int { return s.conns.Size() }

// Metrics returns a snapshot of the server counters.
func (s *Server) Metrics() map[string]int64 {
	s.metrics.Set("active_conns", int64(s.conns.Size()))
	return s.metrics.GetSnapshot()
}

// Debug evaluates every registered probe.
func (s *Server) Debug() map[string]any { return s.probes.DumpState() }

// Running reports whether the loops are live.
func (s *Server) Running() bool { return s.running.Load() }
