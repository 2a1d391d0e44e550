// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness poller used by every event loop of
// the server: an epoll instance plus an eventfd so that other goroutines can
// interrupt a blocked Wait. Non-Linux builds get a stub that reports
// api.ErrNotSupported.
package reactor
