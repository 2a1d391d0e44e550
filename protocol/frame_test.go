package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameLength(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		wantLen  int
		complete bool
	}{
		{"empty", "", 0, false},
		{"partial head", "GET / HTTP/1.1\r\nHost: h\r\n", 0, false},
		{"crlf head", "GET / HTTP/1.1\r\nHost: h\r\n\r\n", 27, true},
		{"lf head", "GET / HTTP/1.1\nHost: h\n\n", 24, true},
		{"leading blank", "\r\nGET / HTTP/1.1\r\n\r\n", 20, true},
		{"body pending", "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nab", 43, false},
		{"body done", "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nabcde", 43, true},
		{"case insensitive", "POST / HTTP/1.1\r\ncontent-length:2\r\n\r\nab", 39, true},
		{"bad length ignored", "POST / HTTP/1.1\r\nContent-Length: x\r\n\r\n", 38, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, ok := FrameLength([]byte(c.in))
			assert.Equal(t, c.complete, ok)
			if c.wantLen > 0 {
				assert.Equal(t, c.wantLen, n)
			}
		})
	}
}

func TestFrameLengthExtraBytes(t *testing.T) {
	in := []byte("GET / HTTP/1.1\r\n\r\nGET /next")
	n, ok := FrameLength(in)
	assert.True(t, ok)
	assert.Equal(t, 18, n)
}
