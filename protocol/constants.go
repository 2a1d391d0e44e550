// Package protocol
// Author: momentics <momentics@gmail.com>
//
// HTTP/1.x wire protocol constants

package protocol

import "errors"

const (
	CR       = '\r'
	LF       = '\n'
	SP       = ' '
	HT       = '\t'
	Colon    = ':'
	Question = '?'

	// ValueSeparator splits a header value into its token list.
	ValueSeparator = "; "

	MethodGet  = "GET"
	MethodPost = "POST"

	ProtoHTTP10 = "HTTP/1.0"
	ProtoHTTP11 = "HTTP/1.1"

	HeaderHost            = "Host"
	HeaderConnection      = "Connection"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderContentEncoding = "Content-Encoding"
	HeaderCacheControl    = "Cache-Control"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderUserAgent       = "User-Agent"
	HeaderReferer         = "Referer"
	HeaderETag            = "ETag"
	HeaderLocation        = "Location"
	HeaderServer          = "Server"
	HeaderDate            = "Date"
)

// Parse failure reasons.
var (
	ErrMalformed  = errors.New("protocol: malformed request")
	ErrIncomplete = errors.New("protocol: incomplete request")
	ErrTooLarge   = errors.New("protocol: request exceeds size limit")
)

func isBlank(c byte) bool { return c == SP || c == HT }

func isLeadingSpace(c byte) bool { return c == CR || c == LF || c == SP || c == HT }
