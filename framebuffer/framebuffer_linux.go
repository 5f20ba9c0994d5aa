package framebuffer

import (
	"errors"
	"fmt"
	"os"

	"launchpad.net/gommap"

	"github.com/BeatGlow/scanout/internal/ioctl"
)

// From <linux/fb.h>
const (
	fbioGetVScreenInfo = 0x4600
	fbioGetFScreenInfo = 0x4602
	fbioBlank          = 0x4611

	fbBlankUnblank  = 0
	fbBlankPowerOff = 4
)

var errUnmapped = errors.New("framebuffer: device is closed")

// FrameBuffer is an open, mapped framebuffer device.
type FrameBuffer struct {
	f   *os.File
	fix fixScreenInfo
	v   varScreenInfo
	pix []byte
}

// Open a Linux framebuffer device (fbdev) by name, typically /dev/fb[0..x].
// Only 32-bit XRGB devices are supported; anything else is rejected rather
// than negotiated.
func Open(name string) (*FrameBuffer, error) {
	f, err := os.OpenFile(name, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, err
	}

	fb := &FrameBuffer{f: f}
	if err = ioctl.Do(f.Fd(), fbioGetFScreenInfo, &fb.fix); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err = ioctl.Do(f.Fd(), fbioGetVScreenInfo, &fb.v); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err = validate(&fb.v); err != nil {
		_ = f.Close()
		return nil, err
	}

	fb.pix, err = gommap.MapAt(0, f.Fd(), 0, int64(fb.fix.SmemLen),
		gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("framebuffer: mmap: %w", err)
	}
	return fb, nil
}

// Surface returns the visible pixel memory with its dimensions and row
// pitch in bytes. Writes land on screen immediately.
func (fb *FrameBuffer) Surface() (pix []byte, width, height, pitch int) {
	return fb.pix, int(fb.v.Xres), int(fb.v.Yres), int(fb.fix.LineLength)
}

// Blank powers the display off or back on.
func (fb *FrameBuffer) Blank(off bool) error {
	arg := uintptr(fbBlankUnblank)
	if off {
		arg = fbBlankPowerOff
	}
	return ioctl.Call(fb.f.Fd(), fbioBlank, arg)
}

// Close unmaps the pixel memory and closes the device. Calling Close twice
// is an error on the second call, not a second unmap.
func (fb *FrameBuffer) Close() error {
	if fb.pix == nil {
		return errUnmapped
	}
	err := gommap.MMap(fb.pix).UnsafeUnmap()
	fb.pix = nil
	if cerr := fb.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// validate rejects every pixel layout except 32-bit XRGB; the engine never
// negotiates formats.
func validate(v *varScreenInfo) error {
	if v.BitsPerPixel != 32 {
		return fmt.Errorf("framebuffer: unsupported depth %d bpp", v.BitsPerPixel)
	}
	if v.Red.Offset != 16 || v.Red.Length != 8 ||
		v.Green.Offset != 8 || v.Green.Length != 8 ||
		v.Blue.Offset != 0 || v.Blue.Length != 8 {
		return errors.New("framebuffer: unsupported color layout, want XRGB")
	}
	return nil
}

type fixScreenInfo struct {
	ID         [16]byte  // Identification string
	SmemStart  uintptr   // Start of frame buffer mem
	SmemLen    uint32    // Length of frame buffer mem
	Type       uint32    // FB_TYPE_
	TypeAux    uint32    // Interleave for interleaved Planes
	Visual     uint32    // FB_VISUAL_
	Xpanstep   uint16    // Zero if no hardware panning
	Ypanstep   uint16    // Zero if no hardware panning
	Ywrapstep  uint16    // Zero if no hardware ywrap
	LineLength uint32    // Length of a line in bytes
	MmioStart  uintptr   // Start of Memory Mapped I/O
	MmioLen    uint32    // Length of Memory Mapped I/O
	Accel      uint32    // Type of acceleration available
	Reserved   [3]uint16 // Reserved for future compatibility
}

type bitField struct {
	Offset   uint32 // Beginning of bitfield
	Length   uint32 // Length of bitfield
	MsbRight uint32 // != 0 : Most significant bit is right
}

// varScreenInfo contains device independent changeable information about a
// frame buffer device and a specific video mode.
type varScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32
	Red, Green, Blue, Alpha bitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}
