package display

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type Options struct {
	ScrollStep int           // pixels per scroll frame
	FrameDelay time.Duration // time between scroll frames
	DotDelay   time.Duration // time between status animation frames
	HoldDelay  time.Duration // pause at either end of a scroll pass
}

func (o Options) withDefaults() Options {
	if o.ScrollStep <= 0 {
		o.ScrollStep = 2
	}
	if o.FrameDelay <= 0 {
		o.FrameDelay = 40 * time.Millisecond
	}
	if o.DotDelay <= 0 {
		o.DotDelay = 400 * time.Millisecond
	}
	if o.HoldDelay < 0 {
		o.HoldDelay = 0
	}
	return o
}

type UpdateOptions struct {
	// Error draws the main line inverted.
	Error bool
	// Stop, when set, keeps the text on screen (scrolling if needed) until
	// it is closed.
	Stop <-chan struct{}
}

// Reporter owns the panel. Concurrent callers are serialised per frame.
type Reporter struct {
	panel Panel
	opt   Options

	mu     sync.Mutex
	header string
	status string
}

func NewReporter(panel Panel, opt Options) *Reporter {
	return &Reporter{panel: panel, opt: opt.withDefaults()}
}

// Init clears the panel and puts the device address on the header row.
func (r *Reporter) Init(ctx context.Context, ip string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.header = "IP: " + ip
	r.status = ""
	if err := r.drawLocked(frame{header: r.header}); err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	return nil
}

func (r *Reporter) SetStatus(label string) error {
	return r.show(frame{main: label}, label)
}

// ShowStatus animates label with trailing dots until ctx is done. Cancellation
// is the normal way to end it, so it returns nil then.
func (r *Reporter) ShowStatus(ctx context.Context, label string) error {
	t := time.NewTicker(r.opt.DotDelay)
	defer t.Stop()

	for dots := 0; ; dots = (dots + 1) % 4 {
		if err := r.show(frame{main: label + strings.Repeat(".", dots)}, label); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Update writes text to the main line. Text wider than the panel scrolls.
// Without opt.Stop a single pass is shown; with it the text stays until Stop
// is closed.
func (r *Reporter) Update(ctx context.Context, text string, opt UpdateOptions) error {
	width := r.panel.Bounds().Dx()
	overflow := textWidth(text) - width

	if overflow <= 0 {
		if err := r.show(frame{main: text, invert: opt.Error}, text); err != nil {
			return err
		}
		if opt.Stop == nil {
			return nil
		}
		select {
		case <-opt.Stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		stopped, err := r.scroll(ctx, text, overflow, opt)
		if err != nil || stopped || opt.Stop == nil {
			return err
		}
	}
}

// scroll makes one pass from the start of text to its end and reports
// whether Stop closed meanwhile.
func (r *Reporter) scroll(ctx context.Context, text string, overflow int, opt UpdateOptions) (bool, error) {
	wait := func(d time.Duration) (bool, error) {
		if d <= 0 {
			return false, ctx.Err()
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-opt.Stop:
			return true, nil
		case <-t.C:
			return false, nil
		}
	}

	step := r.opt.ScrollStep
	for offset := 0; ; offset += step {
		offset = min(offset, overflow)
		if err := r.show(frame{main: text, offset: offset, invert: opt.Error}, text); err != nil {
			return false, err
		}

		d := r.opt.FrameDelay
		if offset == 0 || offset == overflow {
			d += r.opt.HoldDelay
		}
		if stopped, err := wait(d); stopped || err != nil {
			return stopped, err
		}
		if offset == overflow {
			return false, nil
		}
	}
}

// Status returns the text currently on the main line.
func (r *Reporter) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.panel.Halt()
}

func (r *Reporter) show(f frame, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f.header = r.header
	r.status = status
	return r.drawLocked(f)
}

func (r *Reporter) drawLocked(f frame) error {
	b := r.panel.Bounds()
	return r.panel.Draw(b, render(b, f), b.Min)
}
