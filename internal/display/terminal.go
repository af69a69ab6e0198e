package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
)

var (
	litUpper = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	litBoth  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorWhite)
	litNone  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorBlack)
	litLower = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
)

// Terminal simulates the panel in a terminal, two pixel rows per cell.
type Terminal struct {
	screen tcell.Screen
	bounds image.Rectangle
}

// NewTerminal takes over the controlling terminal.
func NewTerminal(w, h int) (*Terminal, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("new screen: %w", err)
	}
	return NewTerminalScreen(s, w, h)
}

func NewTerminalScreen(s tcell.Screen, w, h int) (*Terminal, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	s.Clear()
	return &Terminal{screen: s, bounds: image.Rect(0, 0, w, h)}, nil
}

func (t *Terminal) Bounds() image.Rectangle { return t.bounds }

func (t *Terminal) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(t.bounds)
	lit := func(x, y int) bool {
		if !(image.Point{X: x, Y: y}).In(r) {
			return false
		}
		g := color.GrayModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y)).(color.Gray)
		return g.Y >= 0x80
	}

	for y := t.bounds.Min.Y; y < t.bounds.Max.Y; y += 2 {
		for x := t.bounds.Min.X; x < t.bounds.Max.X; x++ {
			top, bottom := lit(x, y), lit(x, y+1)

			st := litUpper
			switch {
			case top && bottom:
				st = litBoth
			case !top && !bottom:
				st = litNone
			case !top && bottom:
				st = litLower
			}
			t.screen.SetContent(x, y/2, '▀', nil, st)
		}
	}
	t.screen.Show()
	return nil
}

func (t *Terminal) Halt() error {
	t.screen.Fini()
	return nil
}
