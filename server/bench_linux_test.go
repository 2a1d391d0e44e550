//go:build linux

package server

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"

	"github.com/momentics/hioload-http/protocol"
)

// BenchmarkKeepAliveRoundTrip measures request/response latency over one
// persistent connection per parallel client.
func BenchmarkKeepAliveRoundTrip(b *testing.B) {
	s, err := NewServer(testConfig(), HandlerFunc(func(*protocol.Request) protocol.Response {
		return protocol.Text("ok")
	}))
	if err != nil {
		b.Fatal(err)
	}
	if err := s.Start(); err != nil {
		b.Fatal(err)
	}
	defer s.Shutdown()
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.Port()))
	req := []byte("GET /bench HTTP/1.1\r\nHost: bench\r\n\r\n")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			b.Error(err)
			return
		}
		defer c.Close()
		r := bufio.NewReader(c)
		for pb.Next() {
			if _, err := c.Write(req); err != nil {
				b.Error(err)
				return
			}
			resp, err := http.ReadResponse(r, nil)
			if err != nil {
				b.Error(err)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	})
}
