// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request unit framing. Connection framers call FrameLength after every read
// to decide whether the accumulated bytes are worth handing to Parse.

package protocol

import "bytes"

var contentLengthName = []byte(HeaderContentLength)

// FrameLength reports the length of the request unit at the start of b and
// whether b already holds all of it. A unit is the head up to and including
// the blank line, plus the body declared by Content-Length when present.
// The length is only meaningful when the head is complete.
func FrameLength(b []byte) (int, bool) {
	p := 0
	for p < len(b) && isLeadingSpace(b[p]) {
		p++
	}
	headEnd := headTerminator(b, p)
	if headEnd < 0 {
		return 0, false
	}
	cl := declaredLength(b[p:headEnd])
	if cl <= 0 {
		return headEnd, true
	}
	total := headEnd + cl
	if total < headEnd {
		// overflow: never satisfiable
		return headEnd, false
	}
	return total, len(b) >= total
}

// headTerminator returns the index just past the blank line that closes
// the head, or -1.
func headTerminator(b []byte, p int) int {
	for {
		i := bytes.IndexByte(b[p:], LF)
		if i < 0 {
			return -1
		}
		i += p
		switch {
		case i+1 < len(b) && b[i+1] == LF:
			return i + 2
		case i+2 < len(b) && b[i+1] == CR && b[i+2] == LF:
			return i + 3
		}
		p = i + 1
	}
}

// declaredLength scans head lines for a Content-Length field. Missing or
// unparsable values yield 0.
func declaredLength(head []byte) int {
	for len(head) > 0 {
		line := head
		if i := bytes.IndexByte(head, LF); i >= 0 {
			line, head = head[:i], head[i+1:]
		} else {
			head = nil
		}
		line = bytes.TrimLeft(line, " \t")
		if len(line) <= len(contentLengthName) || !bytes.EqualFold(line[:len(contentLengthName)], contentLengthName) {
			continue
		}
		rest := bytes.TrimLeft(line[len(contentLengthName):], " \t")
		if len(rest) == 0 || rest[0] != Colon {
			continue
		}
		return atoiDigits(bytes.TrimSpace(rest[1:]))
	}
	return 0
}

func atoiDigits(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
		if n < 0 {
			return 0
		}
	}
	return n
}
