// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/hioload-http/protocol"

// Handler produces the response for one request. It runs on a worker
// goroutine and may be called concurrently. A nil response or a panic is
// answered with 500.
//
// Requests that failed to parse never reach the handler.
type Handler interface {
	Handle(req *protocol.Request) protocol.Response
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(req *protocol.Request) protocol.Response

func (f HandlerFunc) Handle(req *protocol.Request) protocol.Response { return f(req) }

// Middleware augments a Handler.
type Middleware func(Handler) Handler

// NewHandlerChain applies middleware in order: first in slice is outermost.
func NewHandlerChain(base Handler, mw ...Middleware) Handler {
	h := base
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
