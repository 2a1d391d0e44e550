//go:build !linux

// File: internal/transport/socket_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "github.com/momentics/hioload-http/api"

func Listen(host string, port, backlog int) (int, error) { return -1, api.ErrNotSupported }
func Accept(lfd int) (int, string, error)               { return -1, "", api.ErrNotSupported }
func Tune(fd int, keepAlive, noDelay bool) error        { return api.ErrNotSupported }
func Read(fd int, p []byte) (int, error)                { return 0, api.ErrNotSupported }
func Write(fd int, p []byte) (int, error)               { return 0, api.ErrNotSupported }
func Shutdown(fd int) error                             { return api.ErrNotSupported }
func Close(fd int) error                                { return api.ErrNotSupported }
func LocalPort(fd int) (int, error)                     { return 0, api.ErrNotSupported }
