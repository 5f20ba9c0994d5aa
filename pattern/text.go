package pattern

import (
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Text draws a label on top of another painter's output. With a nil Face
// the built-in 7x13 face is used.
type Text struct {
	Label string
	Face  font.Face
	Next  Painter
}

func (t *Text) Paint(pix []byte, width, height, pitch int) {
	if t.Next != nil {
		t.Next.Paint(pix, width, height, pitch)
	}
	if t.Label == "" {
		return
	}

	face := t.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	d := font.Drawer{
		Dst:  NewSurface(pix, width, height, pitch),
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	// centered horizontally, one line height above the bottom edge
	m := face.Metrics()
	w := d.MeasureString(t.Label)
	d.Dot = fixed.Point26_6{
		X: (fixed.I(width) - w) / 2,
		Y: fixed.I(height) - m.Height,
	}
	d.DrawString(t.Label)
}

// LoadFace parses a TTF file into a face of the given point size.
func LoadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}
