package main

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunClientSession(t *testing.T) {
	srv := startTestServer(t)
	conn, err := net.Dial("tcp", srv.listenAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	in := strings.NewReader("TEST\n1\n\n")
	var out bytes.Buffer

	require.NoError(t, runClientSession(conn, in, &out))

	got := out.String()
	assert.Contains(t, got, "TEST OK")
	assert.Contains(t, got, "Grazie!")
	assert.Contains(t, got, "connection terminated")
	assert.Equal(t, 3, strings.Count(got, "> "), "one prompt per read attempt")
}

func TestRunClientSession_EndsAtEOF(t *testing.T) {
	srv := startTestServer(t)
	conn, err := net.Dial("tcp", srv.listenAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	in := strings.NewReader("PROVA\n")
	var out bytes.Buffer

	require.NoError(t, runClientSession(conn, in, &out))

	assert.Contains(t, out.String(), "PROVA OK")
	assert.Contains(t, out.String(), "connection terminated")
}

func TestRunClientSession_NoReply(t *testing.T) {
	old := replyWait
	replyWait = 50 * time.Millisecond
	t.Cleanup(func() { replyWait = old })

	srv := startTestServer(t)
	conn, err := net.Dial("tcp", srv.listenAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	in := strings.NewReader("WHOAMI\n")
	var out bytes.Buffer

	require.NoError(t, runClientSession(conn, in, &out))

	assert.Contains(t, out.String(), "(no reply)")
}
