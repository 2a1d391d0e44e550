// File: server/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"

	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/reactor"
)

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	defer func() {
		if err := s.acceptor.Close(); err != nil {
			s.log.Warnf("acceptor: close poller: %v", err)
		}
	}()
	for s.running.Load() {
		s.acceptRound()
	}
}

func (s *Server) acceptRound() {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Errorf("acceptor: recovered: %v", rec)
		}
	}()
	_, err := s.acceptor.Wait(s.cfg.PollTimeout, func(fd int, ev reactor.Events) {
		if fd == s.lfd {
			s.acceptAll()
		}
	})
	if err != nil && s.running.Load() {
		s.log.Errorf("acceptor: poll: %v", err)
	}
}

// acceptAll drains the listen backlog and spreads the new connections over
// the readers round-robin.
func (s *Server) acceptAll() {
	for s.running.Load() {
		fd, remote, err := transport.Accept(s.lfd)
		if err != nil {
			if !errors.Is(err, transport.ErrWouldBlock) {
				s.log.Warnf("acceptor: %v", err)
			}
			return
		}
		if err := transport.Tune(fd, s.cfg.KeepAlive, !s.cfg.UseNagle); err != nil {
			s.log.Warnf("acceptor: tune %s: %v", remote, err)
			transport.Close(fd)
			continue
		}
		fr, err := s.getFramer()
		if err != nil {
			s.log.Errorf("acceptor: %v", err)
			transport.Close(fd)
			continue
		}
		c := newConn(fd, remote, fr)
		s.conns.Store(c.id, c)
		s.metrics.Inc(control.MetricConnsAccepted)

		idx := (s.next.Add(1) - 1) % uint32(len(s.readers))
		s.readers[idx].register(c)
	}
}

func (s *Server) getFramer() (*framer, error) {
	if fr, ok := s.framers.Get(); ok {
		return fr, nil
	}
	s.metrics.Inc(control.MetricPoolMisses)
	return newFramer(s.cfg.BufferCapacity, s.cfg.BufferIncrement, s.cfg.MaxRequestSize)
}
