package main

// ackToken is the fixed acknowledgement command. Clients send it to confirm
// receipt of data delivered out of band; the server thanks them for it.
const ackToken = "1"

// commands maps a received line to its routine. Lookup is by the exact line
// text after newline stripping: no prefix matching, no case folding, no
// whitespace trimming. New commands are added here without touching the
// read loop.
var commands = map[string]func(*conn){
	ackToken: (*conn).handleAck,
	"TEST":   (*conn).handleTest,
	"PROVA":  (*conn).handleProva,
}

// dispatch routes one received line. Unknown lines are reported and
// otherwise ignored; they never terminate the connection.
func (c *conn) dispatch(line string) {
	cmd, ok := commands[line]
	if !ok {
		c.log.Warn().Str("line", line).Msg("unknown command")
		return
	}
	cmd(c)
}

func (c *conn) handleAck() {
	c.acks++
	c.log.Info().Int("total", c.acks).Msg("ack received")
	c.reply("Grazie!\n")
}

func (c *conn) handleTest() {
	c.log.Info().Msg("TEST requested")
	c.reply("TEST OK\n")
}

func (c *conn) handleProva() {
	c.log.Info().Msg("PROVA requested")
	c.reply("PROVA OK\n")
}
