package server

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/core/buffer"
	"github.com/momentics/hioload-http/internal/logger"
	"github.com/momentics/hioload-http/pool"
	"github.com/momentics/hioload-http/protocol"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, 2*runtime.NumCPU(), c.Threads)
	assert.True(t, c.KeepAlive)
	assert.False(t, c.UseNagle)
	assert.Equal(t, 1024, c.QueueSize)
	assert.Equal(t, 512*1024, c.BufferCapacity)
	assert.Equal(t, 1024*1024, c.BufferIncrement)
	assert.Equal(t, 24*1024*1024, c.MaxRequestSize)
	assert.Equal(t, 64*1024, c.WriteChunk)
	assert.Equal(t, time.Second, c.PollTimeout)
	assert.Equal(t, pool.Soft, c.PoolMode)
	assert.NotNil(t, c.Logger)
	assert.NoError(t, c.Validate())
	assert.Equal(t, ":8090", c.Addr())
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port low":      func(c *Config) { c.Port = -2 },
		"port high":     func(c *Config) { c.Port = 70000 },
		"threads":       func(c *Config) { c.Threads = -1 },
		"queue":         func(c *Config) { c.QueueSize = -1 },
		"buffer vs max": func(c *Config) { c.BufferCapacity = 2048; c.MaxRequestSize = 1024 },
		"buffer vs default max": func(c *Config) {
			c.BufferCapacity = buffer.DefaultMaxCapacity + 1
			c.MaxRequestSize = 0
		},
		"pool mode":     func(c *Config) { c.PoolMode = pool.RefMode(9) },
		"poll timeout":  func(c *Config) { c.PollTimeout = -time.Second },
		"write chunk":   func(c *Config) { c.WriteChunk = -1 },
		"pool capacity": func(c *Config) { c.PoolCapacity = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
			assert.Equal(t, api.ErrCodeInvalidArgument, api.CodeOf(err))
		})
	}
}

func TestConfigZeroValuesUseDefaults(t *testing.T) {
	c := (&Config{MaxRequestSize: 4096}).withDefaults()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, 4096, c.BufferCapacity)
	assert.Equal(t, DefaultQueueSize, c.QueueSize)
	assert.Equal(t, DefaultPollTimeout, c.PollTimeout)
	assert.Positive(t, c.Threads)
	assert.NotNil(t, c.Logger)
	assert.NoError(t, c.Validate())
}

func TestConfigBindPort(t *testing.T) {
	assert.Equal(t, DefaultPort, (&Config{}).bindPort())
	assert.Equal(t, 0, (&Config{Port: EphemeralPort}).bindPort())
	assert.Equal(t, 9000, (&Config{Port: 9000}).bindPort())
	assert.Equal(t, "127.0.0.1:9000", (&Config{Host: "127.0.0.1", Port: 9000}).Addr())
}

func TestNewServerRejects(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	nop := HandlerFunc(func(*protocol.Request) protocol.Response { return nil })
	_, err = NewServer(&Config{Port: -7}, nop)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	// an initial buffer above the default ceiling would fail every accept
	_, err = NewServer(&Config{BufferCapacity: buffer.DefaultMaxCapacity + 1, Logger: logger.Nop()}, nop)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	s, err := NewServer(&Config{BufferCapacity: buffer.DefaultMaxCapacity, Logger: logger.Nop()}, nop)
	require.NoError(t, err)
	fr, err := s.getFramer()
	require.NoError(t, err)
	assert.Equal(t, buffer.DefaultMaxCapacity, fr.buf.Cap())
}

func TestShutdownBeforeStart(t *testing.T) {
	s, err := NewServer(&Config{Logger: logger.Nop()}, HandlerFunc(func(*protocol.Request) protocol.Response { return nil }))
	require.NoError(t, err)
	assert.Zero(t, s.Port())
	require.NoError(t, s.Shutdown())
	assert.ErrorIs(t, s.Start(), api.ErrServerClosed)
}

func TestHandlerChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(r *protocol.Request) protocol.Response {
				order = append(order, name)
				return next.Handle(r)
			})
		}
	}
	base := HandlerFunc(func(*protocol.Request) protocol.Response {
		order = append(order, "base")
		return protocol.Text("ok")
	})
	h := NewHandlerChain(base, mw("outer"), mw("inner"))
	h.Handle(protocol.Parse([]byte("GET / HTTP/1.1\r\n\r\n")))
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 200, statusCode(protocol.Text("x").Bytes()))
	assert.Equal(t, 413, statusCode(protocol.Error(413).Bytes()))
	assert.Equal(t, 0, statusCode([]byte("garbage")))
}
