package main

import (
	"bufio"
	"io"
	"net"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// conn is one accepted client connection. Fields below log are owned by the
// connection's serve goroutine; the server side only ever touches rwc.
type conn struct {
	server     *Server
	rwc        net.Conn
	id         uuid.UUID
	remoteAddr string
	log        zerolog.Logger

	// acks counts acknowledgement tokens received on this connection.
	// Counters are never shared between handlers.
	acks int

	// closeReason records why the serve loop ended. It is written before
	// the connection unregisters itself, so it is stable once the registry
	// no longer holds the conn.
	closeReason CloseReason
}

// serve runs the connection's read-dispatch-reply loop until the stream
// ends. It starts with its registry slot already reserved by the accept
// loop and, no matter how the loop ends, releases the stream and
// unregisters on exit. Nothing escapes this goroutine: read failures are
// classified and logged, and panics out of command routines are recovered
// here so one connection cannot take down the server.
func (c *conn) serve() {
	c.log.Info().Msg("connection accepted")
	defer func() {
		// The stream may already be closed by the shutdown path or the
		// peer; this close is best-effort.
		c.rwc.Close()
		c.server.unregisterConn(c)
		c.log.Info().
			Stringer("reason", c.closeReason).
			Int("acks", c.acks).
			Msg("connection closed")
	}()
	defer func() {
		if err := recover(); err != nil {
			c.closeReason = ReasonIOError
			c.log.Error().
				Interface("panic", err).
				Bytes("stack", debug.Stack()).
				Msg("panic serving connection")
		}
	}()

	reader := bufio.NewReader(c.rwc)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Bytes after the last newline never form a command.
			c.closeReason = classifyClose(err)
			if c.closeReason == ReasonIOError {
				c.log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		c.dispatch(line)
	}
}

// reply writes a single response line back to the client. A failed write is
// logged and otherwise ignored: if the connection is truly broken the next
// read ends the loop with a proper classification.
func (c *conn) reply(line string) {
	if _, err := io.WriteString(c.rwc, line); err != nil {
		c.log.Debug().Err(err).Msg("reply write failed")
	}
}
