// File: protocol/check.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"errors"
	"net/http"
)

// MaxURLLength bounds the request path, query string excluded.
const MaxURLLength = 2000

// Check decides whether r may reach a handler. It returns the rejection
// status and false for a failed parse (400, or 413 when over the size
// limit), an unsupported protocol (505) or an overlong URL (414).
func Check(r *Request) (int, bool) {
	if r.Failed() {
		if errors.Is(r.Err(), ErrTooLarge) {
			return http.StatusRequestEntityTooLarge, false
		}
		return http.StatusBadRequest, false
	}
	if p := r.Proto(); p != ProtoHTTP11 && p != ProtoHTTP10 {
		return http.StatusHTTPVersionNotSupported, false
	}
	if len(r.URL()) > MaxURLLength {
		return http.StatusRequestURITooLong, false
	}
	return http.StatusOK, true
}
