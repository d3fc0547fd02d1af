package main

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// CloseReason describes why a connection's serve loop ended.
type CloseReason int

const (
	// ReasonPeerClosed means the peer shut down its write side cleanly (FIN).
	ReasonPeerClosed CloseReason = iota
	// ReasonPeerReset means the peer's connection was forcibly reset (RST).
	ReasonPeerReset
	// ReasonLocalShutdown means the stream was closed on our side, which is
	// how the shutdown path stops a handler blocked in a read.
	ReasonLocalShutdown
	// ReasonIOError covers every other read failure.
	ReasonIOError
)

func (r CloseReason) String() string {
	switch r {
	case ReasonPeerClosed:
		return "peer closed"
	case ReasonPeerReset:
		return "peer reset"
	case ReasonLocalShutdown:
		return "local shutdown"
	default:
		return "io error"
	}
}

// classifyClose maps a failed read to a CloseReason. It inspects the wrapped
// error chain with errors.Is/errors.As rather than the error text, which is
// not stable across platforms or Go releases.
func classifyClose(err error) CloseReason {
	if errors.Is(err, io.EOF) {
		return ReasonPeerClosed
	}
	if errors.Is(err, net.ErrClosed) {
		return ReasonLocalShutdown
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.ECONNRESET {
		return ReasonPeerReset
	}
	return ReasonIOError
}
