// File: protocol/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/momentics/hioload-http/api"
)

// Request is one parsed HTTP request unit. It is immutable once Parse
// returns, except for the lazily built argument map.
//
// A request that failed to parse only answers the identity accessors
// (ConnID, RemoteAddr, Raw, Failed, Err). Every protocol accessor panics
// with an *api.Error of code api.ErrCodeIllegalOperation, so handlers must
// check Failed first when they may see such requests.
type Request struct {
	connID uuid.UUID
	remote string
	raw    []byte
	err    error

	method   string
	url      string
	query    string
	hasQuery bool
	proto    string
	headers  map[string][]string
	body     []byte

	args map[string]string
}

// ConnID identifies the connection the request arrived on.
func (r *Request) ConnID() uuid.UUID { return r.connID }

// RemoteAddr is the peer address of the connection.
func (r *Request) RemoteAddr() string { return r.remote }

// Raw returns the bytes the request was parsed from.
func (r *Request) Raw() []byte { return r.raw }

// Failed reports whether parsing failed.
func (r *Request) Failed() bool { return r.err != nil }

// Err returns the parse failure reason, or nil.
func (r *Request) Err() error { return r.err }

func (r *Request) mustParsed(op string) {
	if r.err != nil {
		panic(api.NewError(api.ErrCodeIllegalOperation, "protocol: "+op+" on failed request").
			WithContext("cause", r.err.Error()))
	}
}

// Method returns the request method token.
func (r *Request) Method() string {
	r.mustParsed("Method")
	return r.method
}

// URL returns the request target without the query string.
func (r *Request) URL() string {
	r.mustParsed("URL")
	return r.url
}

// Query returns the raw query string and whether the target carried one.
func (r *Request) Query() (string, bool) {
	r.mustParsed("Query")
	return r.query, r.hasQuery
}

// Proto returns the protocol token, e.g. "HTTP/1.1".
func (r *Request) Proto() string {
	r.mustParsed("Proto")
	return r.proto
}

// Body returns the bytes that followed the head, or nil.
func (r *Request) Body() []byte {
	r.mustParsed("Body")
	return r.body
}

// Args returns the query string as a key/value map. It is built on first use.
func (r *Request) Args() map[string]string {
	r.mustParsed("Args")
	if r.args == nil {
		r.args = parseArgs(r.query)
	}
	return r.args
}

// Arg returns a single query argument.
func (r *Request) Arg(key string) (string, bool) {
	v, ok := r.Args()[key]
	return v, ok
}

// RequestLine rebuilds the request line without the line terminator.
func (r *Request) RequestLine() string {
	r.mustParsed("RequestLine")
	if r.hasQuery {
		return r.method + " " + r.url + "?" + r.query + " " + r.proto
	}
	return r.method + " " + r.url + " " + r.proto
}

// HeaderMap returns the header multimap. Callers must not modify it.
func (r *Request) HeaderMap() map[string][]string {
	r.mustParsed("HeaderMap")
	return r.headers
}

// HeaderNames returns the header names in sorted order.
func (r *Request) HeaderNames() []string {
	r.mustParsed("HeaderNames")
	return slices.Sorted(maps.Keys(r.headers))
}

// Headers returns the value tokens stored under name. Names are matched
// exactly first, then case-insensitively.
func (r *Request) Headers(name string) []string {
	r.mustParsed("Headers")
	return r.lookup(name)
}

// Header returns the field value stored under name with its tokens joined
// back together, or "" when absent.
func (r *Request) Header(name string) string {
	r.mustParsed("Header")
	return strings.Join(r.lookup(name), ValueSeparator)
}

func (r *Request) lookup(name string) []string {
	if v, ok := r.headers[name]; ok {
		return v
	}
	for k, v := range r.headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func (r *Request) Host() string              { return r.Header(HeaderHost) }
func (r *Request) UserAgent() []string       { return r.Headers(HeaderUserAgent) }
func (r *Request) Referer() string           { return r.Header(HeaderReferer) }
func (r *Request) ContentType() string       { return r.Header(HeaderContentType) }
func (r *Request) ContentEncoding() []string { return r.Headers(HeaderContentEncoding) }
func (r *Request) CacheControl() string      { return r.Header(HeaderCacheControl) }
func (r *Request) ETag() string              { return r.Header(HeaderIfNoneMatch) }

// ContentLength parses the Content-Length header.
func (r *Request) ContentLength() (int64, bool) {
	v := strings.TrimSpace(r.Header(HeaderContentLength))
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// KeepAlive reports whether the client expects the connection to stay open
// after the response.
func (r *Request) KeepAlive() bool {
	conn := r.Headers(HeaderConnection)
	has := func(token string) bool {
		for _, v := range conn {
			for _, t := range strings.Split(v, ",") {
				if strings.EqualFold(strings.TrimSpace(t), token) {
					return true
				}
			}
		}
		return false
	}
	if r.proto == ProtoHTTP10 {
		return has("keep-alive")
	}
	return !has("close")
}

func (r *Request) String() string {
	if r.err != nil {
		return r.remote + " : " + r.err.Error()
	}
	return r.remote + " : " + r.RequestLine()
}

func parseArgs(query string) map[string]string {
	args := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		args[k] = v
	}
	return args
}
