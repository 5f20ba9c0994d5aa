// Package pattern provides test pattern painters for scanout surfaces.
//
// Painters write raw 32-bit XRGB pixels into mapped buffer memory; the
// [Surface] type additionally adapts such memory to [draw.Image] so the
// standard image machinery can draw onto it.
package pattern

import (
	"image"
	"image/color"
	"image/draw"
)

// Painter is the frame-filling contract, identical in shape to the scanout
// package's Painter so pattern types plug straight into the frame loop.
type Painter interface {
	Paint(pix []byte, width, height, pitch int)
}

// Surface adapts mapped XRGB buffer memory to [draw.Image]. Pixels are
// written in place; there is no staging copy.
type Surface struct {
	Pix    []byte
	Rect   image.Rectangle
	Stride int
}

var _ draw.Image = (*Surface)(nil)

// NewSurface wraps pix, which must hold height rows of pitch bytes.
func NewSurface(pix []byte, width, height, pitch int) *Surface {
	return &Surface{
		Pix:    pix,
		Rect:   image.Rect(0, 0, width, height),
		Stride: pitch,
	}
}

func (s *Surface) ColorModel() color.Model { return color.RGBAModel }

func (s *Surface) Bounds() image.Rectangle { return s.Rect }

func (s *Surface) At(x, y int) color.Color {
	if !image.Pt(x, y).In(s.Rect) {
		return color.RGBA{}
	}
	i := y*s.Stride + x*4
	return color.RGBA{
		B: s.Pix[i],
		G: s.Pix[i+1],
		R: s.Pix[i+2],
		A: 0xff,
	}
}

func (s *Surface) Set(x, y int, c color.Color) {
	if !image.Pt(x, y).In(s.Rect) {
		return
	}
	r, g, b, _ := c.RGBA()
	i := y*s.Stride + x*4
	s.Pix[i] = byte(b >> 8)
	s.Pix[i+1] = byte(g >> 8)
	s.Pix[i+2] = byte(r >> 8)
	s.Pix[i+3] = 0
}
