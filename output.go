package scanout

import (
	"image"

	"github.com/NeowayLabs/drm/mode"
)

// Output is one physical display target owned by a [Device]: a connector,
// the CRTC driving it, and its buffer slots.
type Output struct {
	desc  Descriptor
	token uint64

	// Exactly two slots. In single-buffer mode only slot 0 is allocated.
	fb [2]Buffer

	// active is the slot the next frame is written to and flipped from.
	// It rotates when the flip completion for this output is consumed.
	active int

	// inFlight is true while a submitted flip has not been acknowledged.
	inFlight bool

	saved   *mode.Crtc
	modeSet bool
	failed  bool
}

// Desc returns the descriptor the output was created from.
func (o *Output) Desc() Descriptor { return o.desc }

// Bounds is the output's pixel bounding box.
func (o *Output) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(o.desc.Width), int(o.desc.Height))
}

// Surface returns the writable back buffer: the mapped memory of the slot
// that will be shown by the next [Device.Present] call, with its
// dimensions and row pitch in bytes.
func (o *Output) Surface() (pix []byte, width, height, pitch int) {
	fb := &o.fb[o.active]
	return fb.data, int(o.desc.Width), int(o.desc.Height), int(fb.pitch)
}

// Failed reports whether the output has been dropped from frame
// production after a presentation failure.
func (o *Output) Failed() bool { return o.failed }
