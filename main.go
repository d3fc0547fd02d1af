package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dusktop [port [backlog]]",
	Short: "A multi-connection TCP command server with an operator console",
	Long: `dusktop is a line-oriented TCP command server. Clients send
newline-terminated commands and receive single-line replies. The operator
console on stdin accepts "close" to stop the server; SIGINT and SIGTERM do
the same.`,
	Args:         cobra.ArbitraryArgs,
	RunE:         runServer,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runServer wires the server, its console, and the signal handler together,
// then blocks in the accept loop until it returns.
func runServer(cmd *cobra.Command, args []string) error {
	port, maxConns := parseArgs(args)

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	srv := NewServer(fmt.Sprintf(":%d", port),
		WithMaxConns(maxConns),
		WithLogger(logger),
	)

	// A termination signal and the console "close" command trigger the
	// same shutdown; whichever comes first wins and the other is a no-op.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-stop
		logger.Info().Msg("termination signal received")
		srv.Shutdown()
	}()

	go srv.RunConsole(os.Stdin)

	if err := srv.ListenAndServe(); !errors.Is(err, ErrServerClosed) {
		return err
	}
	return nil
}

// parseArgs interprets the optional positional arguments [port [backlog]].
// Both are lenient: a port that is not a number in 0-65535 counts as absent
// and the OS assigns one; a backlog that is not a positive integer counts
// as absent and connections are not capped. Arguments past the second are
// ignored.
func parseArgs(args []string) (port, maxConns int) {
	if len(args) >= 1 {
		if p, err := strconv.Atoi(args[0]); err == nil && p >= 0 && p <= 65535 {
			port = p
		}
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			maxConns = n
		}
	}
	return port, maxConns
}
