// Package display mirrors the assistant's state on a small monochrome panel.
package display

import (
	"image"
	"image/draw"
	"sync"
)

// Panel is a monochrome display. *ssd1306.Dev satisfies it.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Memory is a Panel that keeps every frame drawn to it. It backs headless
// hosts and tests.
type Memory struct {
	bounds image.Rectangle

	mu     sync.Mutex
	frames []*image.Gray
	halted bool
}

func NewMemory(w, h int) *Memory {
	return &Memory{bounds: image.Rect(0, 0, w, h)}
}

func (m *Memory) Bounds() image.Rectangle { return m.bounds }

func (m *Memory) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	frame := image.NewGray(m.bounds)
	draw.Draw(frame, r, src, sp, draw.Src)

	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Halt() error {
	m.mu.Lock()
	m.halted = true
	m.mu.Unlock()
	return nil
}

// Frames returns the frames drawn so far, oldest first.
func (m *Memory) Frames() []*image.Gray {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*image.Gray(nil), m.frames...)
}

func (m *Memory) Last() *image.Gray {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

func (m *Memory) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}
