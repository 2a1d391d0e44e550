// File: protocol/parser.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-pass byte scanner for HTTP/1.x request units. Every index is checked
// against the buffer length, so truncated or hostile input yields a failed
// Request instead of a panic.

package protocol

import (
	"strings"

	"github.com/google/uuid"
)

// Parse scans raw into a Request. raw is retained by the Request and must
// not be modified afterwards.
func Parse(raw []byte) *Request {
	return ParseFrom(raw, uuid.Nil, "")
}

// ParseFrom is Parse with the connection identity attached.
func ParseFrom(raw []byte, connID uuid.UUID, remote string) *Request {
	r := &Request{connID: connID, remote: remote, raw: raw}
	if err := r.parse(); err != nil {
		r.fail(err)
	}
	return r
}

// Reject builds a request that is failed from the start, e.g. because the
// framer had to truncate its input.
func Reject(raw []byte, connID uuid.UUID, remote string, reason error) *Request {
	r := &Request{connID: connID, remote: remote, raw: raw}
	r.fail(reason)
	return r
}

// fail drops every protocol field so nothing partial stays visible.
func (r *Request) fail(err error) {
	r.err = err
	r.method, r.url, r.query, r.proto = "", "", "", ""
	r.hasQuery = false
	r.headers = nil
	r.body = nil
}

func (r *Request) parse() error {
	b := r.raw
	n := len(b)
	p := 0

	for p < n && isLeadingSpace(b[p]) {
		p++
	}
	if p >= n {
		return ErrIncomplete
	}

	// Method.
	start := p
	p, err := scanToken(b, p)
	if err != nil {
		return err
	}
	r.method = string(b[start:p])

	// Target, split at the first '?' that is not its first byte.
	if p, err = skipBlanks(b, p); err != nil {
		return err
	}
	start = p
	q := -1
target:
	for ; ; p++ {
		if p >= n {
			return ErrIncomplete
		}
		switch c := b[p]; c {
		case SP, HT:
			break target
		case CR, LF:
			return ErrMalformed
		case Question:
			if q < 0 && p != start {
				q = p
			}
		}
	}
	if q >= 0 {
		if q+1 == p {
			return ErrMalformed
		}
		r.url = string(b[start:q])
		r.query = string(b[q+1 : p])
		r.hasQuery = true
	} else {
		r.url = string(b[start:p])
	}

	// Protocol token runs to the end of the line.
	if p, err = skipBlanks(b, p); err != nil {
		return err
	}
	start = p
	end, next, err := scanLine(b, p)
	if err != nil {
		return err
	}
	r.proto = string(b[start:end])
	p = next

	r.headers = make(map[string][]string)
	for {
		if p >= n {
			return ErrIncomplete
		}
		// Blank line ends the head.
		if b[p] == CR {
			if p+1 >= n {
				return ErrIncomplete
			}
			if b[p+1] != LF {
				return ErrMalformed
			}
			p += 2
			break
		}
		if b[p] == LF {
			p++
			break
		}

		if p, err = skipBlanks(b, p); err != nil {
			return err
		}
		start = p
	name:
		for ; ; p++ {
			if p >= n {
				return ErrIncomplete
			}
			switch b[p] {
			case Colon:
				break name
			case CR, LF:
				return ErrMalformed
			}
		}
		if p == start {
			return ErrMalformed
		}
		key := string(b[start:p])
		p++

		for p < n && isBlank(b[p]) {
			p++
		}
		start = p
		if end, next, err = scanLine(b, p); err != nil {
			return err
		}
		// A repeated name replaces the earlier entry.
		r.headers[key] = strings.Split(string(b[start:end]), ValueSeparator)
		p = next
	}

	if r.method != MethodGet && p < n {
		r.body = b[p:n:n]
	}
	return nil
}

// scanToken advances to the next SP/HT. A line break first is malformed,
// running out of input is incomplete.
func scanToken(b []byte, p int) (int, error) {
	for ; p < len(b); p++ {
		switch b[p] {
		case SP, HT:
			return p, nil
		case CR, LF:
			return p, ErrMalformed
		}
	}
	return p, ErrIncomplete
}

// skipBlanks advances past SP/HT to the start of the next token.
func skipBlanks(b []byte, p int) (int, error) {
	for ; p < len(b); p++ {
		switch b[p] {
		case SP, HT:
		case CR, LF:
			return p, ErrMalformed
		default:
			return p, nil
		}
	}
	return p, ErrIncomplete
}

// scanLine finds the end of the line content (first CR or the LF) and the
// index just past the LF.
func scanLine(b []byte, p int) (end, next int, err error) {
	end = -1
	for ; p < len(b); p++ {
		switch b[p] {
		case CR:
			if end < 0 {
				end = p
			}
		case LF:
			if end < 0 {
				end = p
			}
			return end, p + 1, nil
		}
	}
	return 0, p, ErrIncomplete
}
