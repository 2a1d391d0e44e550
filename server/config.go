// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/core/buffer"
	"github.com/momentics/hioload-http/internal/logger"
	"github.com/momentics/hioload-http/pool"
)

const (
	// DefaultPort is used when Config.Port is zero.
	DefaultPort = 8090
	// EphemeralPort asks the kernel for a free port. Port reports the result.
	EphemeralPort = -1

	DefaultQueueSize   = 1024
	DefaultReadChunk   = 16 * 1024
	DefaultWriteChunk  = 64 * 1024
	DefaultPollTimeout = time.Second
)

// Config holds all server-side configuration parameters.
type Config struct {
	Host    string // bind host, "" for every interface
	Port    int    // 0 = DefaultPort, EphemeralPort = kernel-chosen
	Backlog int    // listen backlog

	Threads   int  // readers and workers, each
	KeepAlive bool // SO_KEEPALIVE on accepted sockets
	UseNagle  bool // false sets TCP_NODELAY

	QueueSize int // bounded work queue between readers and workers

	BufferCapacity  int // initial per-connection request buffer
	BufferIncrement int // growth step above the doubling range
	MaxRequestSize  int // request buffer ceiling, larger requests get 413

	ReadChunk   int           // per-reader scratch buffer
	WriteChunk  int           // synchronous write slice
	PollTimeout time.Duration // bound on every poller wait

	PoolMode     pool.RefMode
	PoolCapacity int

	PinLoops bool // bind each reader and worker to one allowed CPU

	Logger    logger.Logger
	AccessLog bool
}

func defaultBacklog() int {
	if runtime.GOOS == "windows" {
		return 200
	}
	return 128
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		Backlog:         defaultBacklog(),
		Threads:         2 * runtime.NumCPU(),
		KeepAlive:       true,
		QueueSize:       DefaultQueueSize,
		BufferCapacity:  buffer.DefaultCapacity,
		BufferIncrement: buffer.DefaultIncrement,
		MaxRequestSize:  buffer.DefaultMaxCapacity,
		ReadChunk:       DefaultReadChunk,
		WriteChunk:      DefaultWriteChunk,
		PollTimeout:     DefaultPollTimeout,
		PoolMode:        pool.Soft,
		PoolCapacity:    pool.DefaultCapacity,
		Logger:          logger.New(os.Stderr, logger.LevelInfo),
	}
}

// withDefaults returns a copy with zero values replaced by defaults.
// Booleans are taken as given.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	out := *c
	if out.Port == 0 {
		out.Port = d.Port
	}
	if out.Backlog == 0 {
		out.Backlog = d.Backlog
	}
	if out.Threads == 0 {
		out.Threads = d.Threads
	}
	if out.QueueSize == 0 {
		out.QueueSize = d.QueueSize
	}
	if out.MaxRequestSize == 0 {
		out.MaxRequestSize = d.MaxRequestSize
	}
	if out.BufferCapacity == 0 {
		out.BufferCapacity = min(d.BufferCapacity, out.MaxRequestSize)
	}
	if out.BufferIncrement == 0 {
		out.BufferIncrement = d.BufferIncrement
	}
	if out.ReadChunk == 0 {
		out.ReadChunk = d.ReadChunk
	}
	if out.WriteChunk == 0 {
		out.WriteChunk = d.WriteChunk
	}
	if out.PollTimeout == 0 {
		out.PollTimeout = d.PollTimeout
	}
	if out.PoolCapacity == 0 {
		out.PoolCapacity = d.PoolCapacity
	}
	if out.Logger == nil {
		out.Logger = d.Logger
	}
	return &out
}

// Validate reports the first inconsistent value.
func (c *Config) Validate() error {
	bad := func(field string, v any) error {
		return api.NewError(api.ErrCodeInvalidArgument, fmt.Sprintf("server: invalid %s %v", field, v)).
			WithContext("field", field)
	}
	switch {
	case c.Port < EphemeralPort || c.Port > 65535:
		return bad("Port", c.Port)
	case c.Backlog < 0:
		return bad("Backlog", c.Backlog)
	case c.Threads < 0:
		return bad("Threads", c.Threads)
	case c.QueueSize < 0:
		return bad("QueueSize", c.QueueSize)
	case c.BufferCapacity < 0:
		return bad("BufferCapacity", c.BufferCapacity)
	case c.BufferIncrement < 0:
		return bad("BufferIncrement", c.BufferIncrement)
	case c.MaxRequestSize < 0:
		return bad("MaxRequestSize", c.MaxRequestSize)
	case c.BufferCapacity > c.maxRequestSize():
		return bad("BufferCapacity", c.BufferCapacity)
	case c.ReadChunk < 0:
		return bad("ReadChunk", c.ReadChunk)
	case c.WriteChunk < 0:
		return bad("WriteChunk", c.WriteChunk)
	case c.PollTimeout < 0:
		return bad("PollTimeout", c.PollTimeout)
	case c.PoolMode != pool.Soft && c.PoolMode != pool.Weak:
		return bad("PoolMode", c.PoolMode)
	case c.PoolCapacity < 0:
		return bad("PoolCapacity", c.PoolCapacity)
	}
	return nil
}

// maxRequestSize is the effective buffer ceiling.
func (c *Config) maxRequestSize() int {
	if c.MaxRequestSize == 0 {
		return buffer.DefaultMaxCapacity
	}
	return c.MaxRequestSize
}

// bindPort maps the configured port to the one passed to bind(2).
func (c *Config) bindPort() int {
	switch c.Port {
	case 0:
		return DefaultPort
	case EphemeralPort:
		return 0
	}
	return c.Port
}

// Addr returns the configured listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.bindPort()))
}
