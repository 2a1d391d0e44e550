// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the HTTP/1.x wire layer of hioload-http.
//
// Includes:
//   - single-pass byte scanner turning one buffered request unit into a Request
//   - head framing (FrameLength) used by connection framers to decide when to parse
//   - HTTPResponse serialization
//
// The parser is not incremental: callers accumulate what they believe is a
// complete unit and hand the whole slice over. Failures never panic inside
// the scanner; they leave the Request in a terminal failed state.
package protocol
