// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"net/http"
	"strconv"
	"strings"
)

// Response is anything that can serialize itself to wire bytes. The engine
// writes Bytes() verbatim.
type Response interface {
	Bytes() []byte
}

type headerField struct {
	name  string
	value string
}

// HTTPResponse is a plain HTTP/1.x response. Header order is preserved as
// set; setting an existing name replaces its value in place.
type HTTPResponse struct {
	Protocol string
	Code     int
	Reason   string
	Body     []byte

	header []headerField
}

// NewResponse builds a response with the standard reason phrase for code.
func NewResponse(code int) *HTTPResponse {
	return &HTTPResponse{
		Protocol: ProtoHTTP11,
		Code:     code,
		Reason:   http.StatusText(code),
	}
}

// Text returns a 200 response carrying body as text/plain.
func Text(body string) *HTTPResponse {
	r := NewResponse(http.StatusOK)
	r.SetHeader(HeaderContentType, "text/plain; charset=utf-8")
	r.SetBody([]byte(body))
	return r
}

// Redirect returns a temporary redirect to location.
func Redirect(location string) *HTTPResponse {
	r := NewResponse(http.StatusTemporaryRedirect)
	r.SetHeader(HeaderLocation, location)
	return r
}

// NotModified answers a conditional request whose entity tag still matches.
func NotModified(etag string) *HTTPResponse {
	r := NewResponse(http.StatusNotModified)
	if etag != "" {
		r.SetHeader(HeaderETag, etag)
	}
	return r
}

// Error returns a bodied error response for code.
func Error(code int) *HTTPResponse {
	r := NewResponse(code)
	r.SetHeader(HeaderContentType, "text/plain; charset=utf-8")
	r.SetBody([]byte(strconv.Itoa(code) + " " + r.Reason + "\n"))
	return r
}

func (r *HTTPResponse) SetHeader(name, value string) *HTTPResponse {
	for i := range r.header {
		if strings.EqualFold(r.header[i].name, name) {
			r.header[i].value = value
			return r
		}
	}
	r.header = append(r.header, headerField{name: name, value: value})
	return r
}

func (r *HTTPResponse) HeaderValue(name string) (string, bool) {
	for _, f := range r.header {
		if strings.EqualFold(f.name, name) {
			return f.value, true
		}
	}
	return "", false
}

func (r *HTTPResponse) SetBody(b []byte) *HTTPResponse {
	r.Body = b
	return r
}

// bodyless reports whether the status forbids a message body.
func (r *HTTPResponse) bodyless() bool {
	return r.Code < 200 || r.Code == http.StatusNoContent || r.Code == http.StatusNotModified
}

// Bytes serializes the status line, headers and body. Content-Length is
// derived from Body unless set explicitly or the status forbids a body. The
// receiver is not modified, so a prebuilt response may be shared.
func (r *HTTPResponse) Bytes() []byte {
	return r.Encode("")
}

// Encode is Bytes with a Connection header appended when connection is
// non-empty and the response does not set one itself.
func (r *HTTPResponse) Encode(connection string) []byte {
	proto := r.Protocol
	if proto == "" {
		proto = ProtoHTTP11
	}
	reason := r.Reason
	if reason == "" {
		reason = http.StatusText(r.Code)
	}
	body := r.Body
	length := ""
	if r.bodyless() {
		body = nil
	} else if _, ok := r.HeaderValue(HeaderContentLength); !ok {
		length = strconv.Itoa(len(body))
	}
	if connection != "" {
		if _, ok := r.HeaderValue(HeaderConnection); ok {
			connection = ""
		}
	}

	size := len(proto) + len(reason) + 16 + len(body) + len(length) + len(connection) + 40
	for _, f := range r.header {
		size += len(f.name) + len(f.value) + 4
	}
	out := make([]byte, 0, size)
	out = append(out, proto...)
	out = append(out, SP)
	out = strconv.AppendInt(out, int64(r.Code), 10)
	out = append(out, SP)
	out = append(out, reason...)
	out = append(out, CR, LF)
	for _, f := range r.header {
		out = appendField(out, f.name, f.value)
	}
	if length != "" {
		out = appendField(out, HeaderContentLength, length)
	}
	if connection != "" {
		out = appendField(out, HeaderConnection, connection)
	}
	out = append(out, CR, LF)
	return append(out, body...)
}

func appendField(out []byte, name, value string) []byte {
	out = append(out, name...)
	out = append(out, Colon, SP)
	out = append(out, value...)
	return append(out, CR, LF)
}

func (r *HTTPResponse) String() string {
	return r.Protocol + " " + strconv.Itoa(r.Code) + " " + r.Reason
}
