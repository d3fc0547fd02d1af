package main

import (
	"bufio"
	"io"
	"strings"
)

// RunConsole reads operator commands from r until r is exhausted or a
// shutdown command arrives. Case-folding is the only leniency over network
// commands: the whole line must spell the command, so padded or blank
// lines are ordinary unrecognized input. Meant to run on its own goroutine
// with r = os.Stdin.
func (s *Server) RunConsole(r io.Reader) {
	s.log.Info().Msg(`console ready, type "close" to stop the server`)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.EqualFold(sc.Text(), "close") {
			s.Shutdown()
			return
		}
		s.log.Warn().Str("input", sc.Text()).Msg("unrecognized console command")
	}
	if err := sc.Err(); err != nil {
		// The server keeps running without its console; a termination
		// signal remains the way to stop it.
		s.log.Warn().Err(err).Msg("console read failed")
	}
}
