// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness event set and poller errors.

package reactor

import (
	"errors"
	"strings"
)

// Events is a bit set of readiness conditions.
type Events uint8

const (
	EventRead Events = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// DefaultMaxEvents bounds how many ready descriptors a single Wait returns.
const DefaultMaxEvents = 256

var (
	// ErrNotRegistered is returned by Modify and Remove for unknown descriptors.
	ErrNotRegistered = errors.New("reactor: descriptor not registered")
	// ErrAlreadyRegistered is returned by Add for a descriptor already in the set.
	ErrAlreadyRegistered = errors.New("reactor: descriptor already registered")
	// ErrClosed is returned by operations on a closed poller.
	ErrClosed = errors.New("reactor: poller closed")
)

func (e Events) Has(x Events) bool { return e&x != 0 }

func (e Events) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	if e.Has(EventRead) {
		parts = append(parts, "read")
	}
	if e.Has(EventWrite) {
		parts = append(parts, "write")
	}
	if e.Has(EventError) {
		parts = append(parts, "error")
	}
	if e.Has(EventHangup) {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}
