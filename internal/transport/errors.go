// File: internal/transport/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "errors"

// ErrWouldBlock reports that the descriptor has no more data to read or no
// room to write right now. It is the normal end of a readiness round.
var ErrWouldBlock = errors.New("transport: operation would block")
