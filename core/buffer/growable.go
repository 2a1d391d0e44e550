// File: core/buffer/growable.go
// Package buffer implements the per-connection accumulation buffer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Growable is a single-writer byte accumulator with a two-phase growth policy
// and a hard ceiling. It never fails a write: once the ceiling is reached it
// reports a short count and the caller decides what truncation means.

package buffer

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/momentics/hioload-http/api"
)

const (
	// DefaultCapacity is the initial backing array size.
	DefaultCapacity = 512 * 1024
	// DefaultIncrement is the threshold above which capacity grows linearly.
	DefaultIncrement = 1024 * 1024
	// DefaultMaxCapacity is the hard ceiling.
	DefaultMaxCapacity = 24 * 1024 * 1024

	// growBase is where doubling starts below the increment threshold.
	growBase = 64
)

// Growable accumulates bytes up to a configured ceiling.
// Invariant: position <= capacity <= maxCapacity, capacity never shrinks.
// Not safe for concurrent use.
type Growable struct {
	buf         []byte
	position    int
	increment   int
	maxCapacity int
}

// New creates a buffer with the given initial capacity, linear growth
// increment and ceiling.
func New(capacity, increment, maxCapacity int) (*Growable, error) {
	if maxCapacity <= 0 || capacity < 0 || capacity > maxCapacity || increment <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument,
			fmt.Sprintf("buffer: capacity=%d increment=%d max=%d", capacity, increment, maxCapacity))
	}
	return &Growable{
		buf:         make([]byte, capacity),
		increment:   increment,
		maxCapacity: maxCapacity,
	}, nil
}

// NewDefault creates a buffer with the default 512 KiB / 1 MiB / 24 MiB policy.
func NewDefault() *Growable {
	g, _ := New(DefaultCapacity, DefaultIncrement, DefaultMaxCapacity)
	return g
}

// Write copies as much of p as fits under the ceiling, growing first if
// needed, and returns the number of bytes accepted.
func (g *Growable) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	g.ensureWritable(len(p))
	n := min(len(p), len(g.buf)-g.position)
	if n <= 0 {
		return 0
	}
	copy(g.buf[g.position:], p[:n])
	g.position += n
	return n
}

// Array returns a copy of the written bytes.
func (g *Growable) Array() []byte {
	out := make([]byte, g.position)
	copy(out, g.buf[:g.position])
	return out
}

// Bytes returns the written bytes without copying. The slice is only valid
// until the next Write or Clear.
func (g *Growable) Bytes() []byte {
	return g.buf[:g.position]
}

// Clear resets the write position and keeps the backing array.
func (g *Growable) Clear() {
	g.position = 0
}

// Len returns the number of written bytes.
func (g *Growable) Len() int { return g.position }

// Cap returns the current capacity.
func (g *Growable) Cap() int { return len(g.buf) }

// MaxCap returns the ceiling.
func (g *Growable) MaxCap() int { return g.maxCapacity }

// IsEmpty reports whether nothing has been written since the last Clear.
func (g *Growable) IsEmpty() bool { return g.position == 0 }

// Writable returns the bytes left before the next growth step.
func (g *Growable) Writable() int { return len(g.buf) - g.position }

// Full reports whether the ceiling has been reached.
func (g *Growable) Full() bool { return g.position >= g.maxCapacity }

func (g *Growable) String() string {
	return fmt.Sprintf("Growable(len: %d, capacity: %d, maxCapacity: %d)",
		g.position, len(g.buf), g.maxCapacity)
}

func (g *Growable) ensureWritable(n int) {
	if n <= g.Writable() || len(g.buf) >= g.maxCapacity {
		return
	}
	newCap := g.nextCapacity(g.position + n)
	if newCap <= len(g.buf) {
		return
	}
	grown := make([]byte, newCap)
	copy(grown, g.buf[:g.position])
	g.buf = grown
}

// nextCapacity picks the capacity for a buffer that must hold need bytes.
func (g *Growable) nextCapacity(need int) int {
	if need == g.increment {
		return min(need, g.maxCapacity)
	}
	if need > g.increment {
		c := roundDown(need, g.increment)
		if c > g.maxCapacity-g.increment {
			return g.maxCapacity
		}
		return c + g.increment
	}
	c := growBase
	for c < need {
		c <<= 1
	}
	return min(c, g.maxCapacity)
}

func roundDown[T constraints.Integer](n, step T) T {
	return n / step * step
}
