// Package netcheck holds startup until the device has a network address.
package netcheck

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "log/slog"

	"gpthome/internal/eventlog"
)

const NotConnected = "Network not connected"

var ErrNoAddress = errors.New("no network address")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Prober asks `hostname -I` for the addresses of the host.
type Prober struct {
	run CommandRunner
}

func NewProber() *Prober {
	return &Prober{run: execRunner}
}

func NewProberWith(run CommandRunner) *Prober {
	return &Prober{run: run}
}

func (p *Prober) Addresses(ctx context.Context) ([]string, error) {
	out, err := p.run(ctx, "hostname", "-I")
	if err != nil {
		return nil, fmt.Errorf("hostname -I: %w", err)
	}
	return strings.Fields(string(out)), nil
}

// LocalIP returns the first address of the host.
func (p *Prober) LocalIP(ctx context.Context) (string, error) {
	addrs, err := p.Addresses(ctx)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", ErrNoAddress
	}
	return addrs[0], nil
}

// Connected implements Probe.
func (p *Prober) Connected(ctx context.Context) bool {
	addrs, err := p.Addresses(ctx)
	if err != nil {
		log.Debug("Network probe failed", "error", err)
		return false
	}
	return len(addrs) > 0
}

type Probe interface {
	Connected(ctx context.Context) bool
}

// Alerter tells the user the network is down. narrate.Narrator satisfies it.
type Alerter interface {
	Phase(ctx context.Context, text string, errStyle bool) error
}

type EventLog interface {
	Append(kind eventlog.Kind, text string) error
}

// Gate blocks until Probe reports connectivity.
type Gate struct {
	Probe    Probe
	Alert    Alerter
	Log      EventLog
	Interval time.Duration
}

// Wait polls every Interval. Each failed poll is logged once and announced;
// announcement failures only reach the console.
func (g *Gate) Wait(ctx context.Context) error {
	interval := g.Interval
	if interval <= 0 {
		interval = time.Second
	}

	for {
		if g.Probe.Connected(ctx) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Warn(NotConnected)
		if err := g.Log.Append(eventlog.KindError, NotConnected); err != nil {
			log.Error("Failed to write event log", "error", err)
		}
		if err := g.Alert.Phase(ctx, NotConnected, true); err != nil && ctx.Err() == nil {
			log.Error("Failed to announce network error", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
