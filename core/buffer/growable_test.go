package buffer_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/core/buffer"
)

func TestNewRejectsInconsistentLimits(t *testing.T) {
	cases := []struct{ capacity, increment, max int }{
		{10, 16, 0},
		{32, 16, 16},
		{-1, 16, 64},
		{8, 0, 64},
	}
	for _, c := range cases {
		_, err := buffer.New(c.capacity, c.increment, c.max)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrInvalidArgument))
	}
}

func TestWriteClearIdempotence(t *testing.T) {
	g, err := buffer.New(16, 1024, 4096)
	require.NoError(t, err)

	x := bytes.Repeat([]byte("hioload"), 50)
	require.Equal(t, len(x), g.Write(x))
	first := g.Array()

	g.Clear()
	assert.True(t, g.IsEmpty())
	require.Equal(t, len(x), g.Write(x))
	assert.Equal(t, first, g.Array())
	assert.Equal(t, x, first)
}

func TestClearKeepsCapacity(t *testing.T) {
	g, err := buffer.New(0, 1024, 4096)
	require.NoError(t, err)
	g.Write(make([]byte, 700))
	grown := g.Cap()
	g.Clear()
	assert.Equal(t, grown, g.Cap())
	assert.Equal(t, 0, g.Len())
}

func TestDoublingBelowIncrement(t *testing.T) {
	g, err := buffer.New(0, 1024, 8192)
	require.NoError(t, err)

	g.Write(make([]byte, 10))
	assert.Equal(t, 64, g.Cap())
	g.Write(make([]byte, 100))
	assert.Equal(t, 128, g.Cap())
	g.Write(make([]byte, 300))
	assert.Equal(t, 512, g.Cap())
}

func TestLinearGrowthAboveIncrement(t *testing.T) {
	g, err := buffer.New(0, 1000, 10_000)
	require.NoError(t, err)

	g.Write(make([]byte, 2500))
	assert.Equal(t, 3000, g.Cap())
	g.Write(make([]byte, 1000))
	assert.Equal(t, 4000, g.Cap())
	assert.Equal(t, 3500, g.Len())
}

func TestCeilingShortCount(t *testing.T) {
	g, err := buffer.New(64, 128, 1000)
	require.NoError(t, err)

	n := g.Write(make([]byte, 900))
	assert.Equal(t, 900, n)
	n = g.Write(make([]byte, 500))
	assert.Equal(t, 100, n)
	assert.True(t, g.Full())
	assert.Equal(t, 0, g.Write([]byte("more")))
	assert.LessOrEqual(t, g.Len(), g.MaxCap())
	assert.LessOrEqual(t, g.Cap(), g.MaxCap())
}

func TestNeverExceedsCeiling(t *testing.T) {
	g, err := buffer.New(0, 256, 3000)
	require.NoError(t, err)
	chunk := make([]byte, 97)
	for i := 0; i < 100; i++ {
		g.Write(chunk)
		require.LessOrEqual(t, g.Len(), g.Cap())
		require.LessOrEqual(t, g.Cap(), g.MaxCap())
	}
	assert.Equal(t, 3000, g.Len())
}

func TestArrayIsACopy(t *testing.T) {
	g := buffer.NewDefault()
	g.Write([]byte("abc"))
	out := g.Array()
	out[0] = 'z'
	assert.Equal(t, []byte("abc"), g.Bytes())
	assert.Equal(t, buffer.DefaultCapacity, g.Cap())
}
