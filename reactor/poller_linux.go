//go:build linux

// File: reactor/poller_linux.go
// Author: momentics <momentics@gmail.com>
//
// Level-triggered epoll poller with an eventfd wake-up channel.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Poller multiplexes readiness over a set of descriptors. Add, Modify,
// Remove and Wait belong to the owning loop; Wake and Close may be called
// from any goroutine.
type Poller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
	closed atomic.Bool
}

// NewPoller creates an epoll instance with its wake-up eventfd registered.
func NewPoller(maxEvents int) (*Poller, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, maxEvents),
	}, nil
}

func toEpoll(ev Events) uint32 {
	var e uint32
	if ev.Has(EventRead) {
		e |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if ev.Has(EventWrite) {
		e |= unix.EPOLLOUT
	}
	return e
}

func fromEpoll(e uint32) Events {
	var ev Events
	if e&unix.EPOLLIN != 0 {
		ev |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		ev |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		ev |= EventError
	}
	if e&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		ev |= EventHangup
	}
	return ev
}

func (p *Poller) ctl(op, fd int, ev Events) error {
	if p.closed.Load() {
		return ErrClosed
	}
	e := unix.EpollEvent{Events: toEpoll(ev), Fd: int32(fd)}
	err := unix.EpollCtl(p.epfd, op, fd, &e)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOENT):
		return ErrNotRegistered
	case errors.Is(err, unix.EEXIST):
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("epoll ctl %d fd %d: %w", op, fd, err)
}

// Add registers fd with the given interest set.
func (p *Poller) Add(fd int, ev Events) error { return p.ctl(unix.EPOLL_CTL_ADD, fd, ev) }

// Modify replaces the interest set of a registered fd. Errors and hangups
// are reported even with an empty set; use Remove to silence an fd.
func (p *Poller) Modify(fd int, ev Events) error { return p.ctl(unix.EPOLL_CTL_MOD, fd, ev) }

// Remove drops fd from the set.
func (p *Poller) Remove(fd int) error { return p.ctl(unix.EPOLL_CTL_DEL, fd, 0) }

// Wait blocks up to timeout (negative blocks indefinitely) and calls fn for
// every ready descriptor. Wake-ups are drained internally and not reported.
// It returns the number of descriptors passed to fn.
func (p *Poller) Wait(timeout time.Duration, fn func(fd int, ev Events)) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(p.epfd, p.events, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		if p.closed.Load() {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	ready := 0
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if fd == p.wakefd {
			p.drainWake()
			continue
		}
		ready++
		fn(fd, fromEpoll(p.events[i].Events))
	}
	return ready, nil
}

// Wake interrupts a concurrent or the next Wait.
func (p *Poller) Wake() error {
	if p.closed.Load() {
		return ErrClosed
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, err := unix.Write(p.wakefd, one[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (p *Poller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// Close releases the epoll instance and the eventfd. Registered descriptors
// are not closed.
func (p *Poller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err1 := unix.Close(p.wakefd)
	err2 := unix.Close(p.epfd)
	return errors.Join(err1, err2)
}
