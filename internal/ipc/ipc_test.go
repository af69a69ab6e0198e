package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpthome/internal/eventlog"
)

func startServer(t *testing.T, b Backend) string {
	t.Helper()
	// unix socket paths are length limited; keep it short
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, path, b.Handle) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	return path
}

func testBackend() Backend {
	entries := []eventlog.Entry{
		{Kind: eventlog.KindHeard, Text: "one"},
		{Kind: eventlog.KindResponse, Text: "two"},
	}
	return Backend{
		Status: func() string { return "Listening" },
		Tail: func(n int) ([]eventlog.Entry, error) {
			if n > len(entries) {
				n = len(entries)
			}
			return entries[len(entries)-n:], nil
		},
	}
}

func TestCall_Status(t *testing.T) {
	path := startServer(t, testBackend())

	resp, err := Call(context.Background(), path, Request{Cmd: CmdStatus})
	require.NoError(t, err)
	assert.Equal(t, "Listening", resp.Status)
}

func TestCall_Logs(t *testing.T) {
	path := startServer(t, testBackend())

	resp, err := Call(context.Background(), path, Request{Cmd: CmdLogs, N: 1})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "two", resp.Entries[0].Text)
}

func TestCall_UnknownCommand(t *testing.T) {
	path := startServer(t, testBackend())

	_, err := Call(context.Background(), path, Request{Cmd: "reboot"})
	assert.EqualError(t, err, `unknown command "reboot"`)
}

func TestBackend_TailError(t *testing.T) {
	b := testBackend()
	b.Tail = func(int) ([]eventlog.Entry, error) { return nil, errors.New("disk gone") }

	resp := b.Handle(context.Background(), Request{Cmd: CmdLogs})
	assert.Equal(t, "disk gone", resp.Error)
}

func TestCall_NoServer(t *testing.T) {
	_, err := Call(context.Background(), filepath.Join(t.TempDir(), "none.sock"), Request{Cmd: CmdStatus})
	assert.Error(t, err)
}
