// Package scanout drives compositor-free rendering straight onto display
// outputs through the kernel mode-setting interface.
//
// A [Device] owns one DRM card and a set of [Output] values, one per
// connected display. Every output carries two kernel dumb buffers that are
// alternated each frame: while one buffer is on screen, the next frame is
// written into the other, and [Device.Present] asks the hardware to switch
// buffers at the next vertical blank. The wait for a flip to complete is
// deferred until the next frame is submitted, so pixel writing overlaps
// with the hardware's vblank latency.
package scanout

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/NeowayLabs/drm/mode"
	"periph.io/x/conn/v3/gpio"
)

var debug bool

func init() {
	debug = os.Getenv("SCANOUT_DEBUG") != ""
}

func logf(format string, args ...interface{}) {
	log.Printf("scanout: "+format, args...)
}

// Errors
var (
	ErrNoDumbBuffer = errors.New("scanout: device does not support dumb buffers")
	ErrCreate       = errors.New("scanout: dumb buffer creation failed")
	ErrRegister     = errors.New("scanout: framebuffer registration failed")
	ErrMap          = errors.New("scanout: dumb buffer mapping failed")
	ErrModeSet      = errors.New("scanout: mode set failed")
	ErrSubmit       = errors.New("scanout: page flip submission failed")
	ErrDropped      = errors.New("scanout: output dropped after earlier failure")
	ErrNoOutputs    = errors.New("scanout: no usable outputs")
)

// DefaultInterval is the nominal frame period used by [Device.Run] when no
// interval is configured.
const DefaultInterval = 16 * time.Millisecond

// Config is the device configuration.
type Config struct {
	// SingleBuffer allocates a single buffer per output and skips the flip
	// protocol entirely: frames are written straight into the visible
	// buffer. Tearing is accepted.
	SingleBuffer bool

	// Backlight is an optional GPIO pin driven high once the first output
	// is bound and low again when the device closes.
	Backlight gpio.PinOut
}

// Painter fills one frame worth of pixels. The pix slice is the mapped
// buffer memory; rows are pitch bytes apart and hold width 32-bit XRGB
// pixels. Paint is called once per output per frame.
type Painter interface {
	Paint(pix []byte, width, height, pitch int)
}

// Descriptor identifies one display output: a connector, the CRTC driving
// it, and the display mode chosen for it. Descriptors are produced by
// output discovery ([DRMCard.ScanOutputs]) and are immutable once handed
// to [Device.AddOutput].
type Descriptor struct {
	Conn   uint32
	Crtc   uint32
	Width  uint16
	Height uint16
	Mode   mode.Info
}
