// Package ipc is the local control socket used by gpthome-ctl.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	log "log/slog"

	"gpthome/internal/eventlog"
)

const DefaultSocketPath = "/tmp/gpthome.sock"

const (
	CmdStatus = "status"
	CmdLogs   = "logs"
)

type Request struct {
	Cmd string `json:"cmd"`
	N   int    `json:"n,omitempty"`
}

type Response struct {
	Error   string           `json:"error,omitempty"`
	Status  string           `json:"status,omitempty"`
	Entries []eventlog.Entry `json:"entries,omitempty"`
}

type Handler func(ctx context.Context, req Request) Response

// Backend is what the control commands read from the running assistant.
type Backend struct {
	Status func() string
	Tail   func(n int) ([]eventlog.Entry, error)
}

// Handle dispatches one request.
func (b Backend) Handle(_ context.Context, req Request) Response {
	switch req.Cmd {
	case CmdStatus:
		return Response{Status: b.Status()}
	case CmdLogs:
		n := req.N
		if n <= 0 {
			n = 10
		}
		entries, err := b.Tail(n)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Entries: entries}
	default:
		return Response{Error: fmt.Sprintf("unknown command %q", req.Cmd)}
	}
}

// Serve accepts connections on the unix socket at path until ctx is done.
// Each connection carries one request and one response.
func Serve(ctx context.Context, path string, handler Handler) error {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				_ = os.Remove(path)
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("Control socket accept failed", "error", err)
			continue
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Debug("Bad control request", "error", err)
		return
	}
	if err := json.NewEncoder(conn).Encode(handler(ctx, req)); err != nil {
		log.Debug("Failed to write control response", "error", err)
	}
}

// Call sends req to the socket at path and waits for the reply.
func Call(ctx context.Context, path string, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("receive: %w", err)
	}
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
