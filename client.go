package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

const defaultClientPort = 1050

// replyWait bounds how long a session waits for a response line. The server
// sends nothing back for unrecognized commands, so a read without a deadline
// would hang forever. Variable so tests can shorten it.
var replyWait = 5 * time.Second

var clientCmd = &cobra.Command{
	Use:   "client [port]",
	Short: "Interactively send commands to a local dusktop server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port := defaultClientPort
		if len(args) >= 1 {
			if p, err := strconv.Atoi(args[0]); err == nil && p >= 0 && p <= 65535 {
				port = p
			}
		}
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return err
		}
		defer conn.Close()
		return runClientSession(conn, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
}

// runClientSession drives one interactive exchange loop: read a line from
// in, send it to the server, print the reply to out. An empty input line or
// end of input closes the session.
func runClientSession(conn net.Conn, in io.Reader, out io.Writer) error {
	terminal := bufio.NewScanner(in)
	replies := bufio.NewReader(conn)
	for {
		fmt.Fprint(out, "> ")
		if !terminal.Scan() {
			break
		}
		msg := terminal.Text()
		if msg == "" {
			break
		}
		if _, err := fmt.Fprintf(conn, "%s\n", msg); err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(replyWait))
		reply, err := replies.ReadString('\n')
		switch {
		case err == nil:
			fmt.Fprint(out, reply)
		case errors.Is(err, os.ErrDeadlineExceeded):
			fmt.Fprintln(out, "(no reply)")
		default:
			return err
		}
	}
	fmt.Fprintln(out, "connection terminated")
	return terminal.Err()
}
