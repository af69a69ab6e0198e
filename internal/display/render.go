package display

import (
	"image"
	"image/color"
	"image/draw"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	face = basicfont.Face7x13
	on   = image.NewUniform(color.Gray{Y: 0xff})
	off  = image.NewUniform(color.Gray{Y: 0x00})
)

const (
	glyphW    = 7
	rowHeight = 13
)

// frame describes one picture on the panel: a fixed header row and a main
// line that may be scrolled left by offset pixels.
type frame struct {
	header string
	main   string
	offset int
	invert bool
}

func textWidth(s string) int {
	return utf8.RuneCountInString(s) * glyphW
}

// headerRect and mainRect split the panel into the IP row and the main line.
func headerRect(b image.Rectangle) image.Rectangle {
	return image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+min(rowHeight, b.Dy()/2))
}

func mainRect(b image.Rectangle) image.Rectangle {
	return image.Rect(b.Min.X, b.Max.Y-min(rowHeight+3, b.Dy()/2), b.Max.X, b.Max.Y)
}

func render(b image.Rectangle, f frame) *image.Gray {
	img := image.NewGray(b)
	draw.Draw(img, b, off, image.Point{}, draw.Src)

	drawText(img.SubImage(headerRect(b)).(*image.Gray), f.header, 0, false)
	drawText(img.SubImage(mainRect(b)).(*image.Gray), f.main, f.offset, f.invert)
	return img
}

// drawText writes s on one row, clipped to dst.
func drawText(dst *image.Gray, s string, offset int, invert bool) {
	r := dst.Bounds()
	fg := image.Image(on)
	if invert {
		draw.Draw(dst, r, on, image.Point{}, draw.Src)
		fg = off
	}
	if s == "" {
		return
	}

	ascent := face.Metrics().Ascent.Ceil()
	baseline := r.Min.Y + (r.Dy()-rowHeight)/2 + ascent
	d := font.Drawer{
		Dst:  dst,
		Src:  fg,
		Face: face,
		Dot:  fixed.P(r.Min.X-offset, baseline),
	}
	d.DrawString(s)
}
