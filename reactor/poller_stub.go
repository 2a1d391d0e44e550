//go:build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"time"

	"github.com/momentics/hioload-http/api"
)

// Poller is unavailable outside Linux.
type Poller struct{}

func NewPoller(maxEvents int) (*Poller, error) {
	return nil, api.NewError(api.ErrCodeNotSupported, "reactor: epoll poller requires linux")
}

func (p *Poller) Add(fd int, ev Events) error    { return api.ErrNotSupported }
func (p *Poller) Modify(fd int, ev Events) error { return api.ErrNotSupported }
func (p *Poller) Remove(fd int) error            { return api.ErrNotSupported }
func (p *Poller) Wake() error                    { return api.ErrNotSupported }
func (p *Poller) Close() error                   { return nil }

func (p *Poller) Wait(timeout time.Duration, fn func(fd int, ev Events)) (int, error) {
	return 0, api.ErrNotSupported
}
