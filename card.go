package scanout

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/drm"
	"github.com/NeowayLabs/drm/ioctl"
	"github.com/NeowayLabs/drm/mode"
	"launchpad.net/gommap"
)

// FlipEvent is one page-flip completion read from the card. Token is the
// opaque back-reference that was passed to [Card.PageFlip].
type FlipEvent struct {
	Token    uint64
	Sequence uint32
}

// Card is the kernel display capability a [Device] is built on. The
// concrete implementation returned by [OpenCard] talks to a DRM card;
// tests substitute their own.
//
// All methods operate on one shared device handle. ReadEvents blocks until
// at least one event is readable and returns every page-flip completion in
// the read, in delivery order; demultiplexing them onto outputs is the
// caller's job.
type Card interface {
	// CreateDumb allocates a dumb pixel buffer and reports its allocation
	// handle, row pitch and total size.
	CreateDumb(width, height uint16, bpp uint32) (handle, pitch uint32, size uint64, err error)

	// AddFrame registers an allocated buffer as a presentable framebuffer
	// and returns the framebuffer id used for mode sets and flips.
	AddFrame(width, height uint16, depth, bpp uint8, pitch, handle uint32) (uint32, error)

	// MapDumb maps the buffer behind handle into process memory.
	MapDumb(handle uint32, size uint64) ([]byte, error)

	// Unmap releases a mapping obtained from MapDumb.
	Unmap(data []byte) error

	// RemoveFrame drops a framebuffer registration.
	RemoveFrame(frame uint32) error

	// DestroyDumb releases the buffer allocation itself.
	DestroyDumb(handle uint32) error

	// SaveCrtc captures the current state of a CRTC so it can be restored
	// at shutdown.
	SaveCrtc(crtc uint32) (*mode.Crtc, error)

	// SetCrtc binds a framebuffer to a CRTC/connector pair using the given
	// mode, making it visible.
	SetCrtc(crtc, frame, conn uint32, m *mode.Info) error

	// RestoreCrtc reinstates a previously saved CRTC state.
	RestoreCrtc(saved *mode.Crtc, conn uint32) error

	// Power sets the connector's DPMS power state.
	Power(conn uint32, on bool) error

	// PageFlip asks the hardware to show frame on crtc at the next
	// vertical blank and to deliver a completion event carrying token.
	PageFlip(crtc, frame uint32, token uint64) error

	// ReadEvents blocks for the next batch of page-flip completions.
	ReadEvents() ([]FlipEvent, error)

	// Close releases the device handle.
	Close() error
}

// struct drm_mode_crtc_page_flip
type sysPageFlip struct {
	crtcID   uint32
	fbID     uint32
	flags    uint32
	reserved uint32
	userData uint64
}

// struct drm_mode_connector_set_property
type sysSetProperty struct {
	value  uint64
	propID uint32
	connID uint32
}

var (
	// DRM_IOWR(0xB0, struct drm_mode_crtc_page_flip)
	ioctlModePageFlip = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysPageFlip{})), drm.IOCTLBase, 0xB0)

	// DRM_IOWR(0xAB, struct drm_mode_connector_set_property)
	ioctlModeSetProperty = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysSetProperty{})), drm.IOCTLBase, 0xAB)
)

// Event types and payload layout from the kernel's drm.h: every event
// starts with a {type, length} header, page-flip completions reuse the
// vblank payload with user_data first.
const (
	eventVBlank       = 0x01
	eventFlipComplete = 0x02

	eventHeaderLen = 8

	// DPMS property values from the connector's "DPMS" enum.
	dpmsOn  = 0
	dpmsOff = 3
)

// DRMCard is the DRM-backed [Card]. It also performs output discovery.
type DRMCard struct {
	file *os.File
}

// OpenCard opens /dev/dri/card<num> and verifies dumb buffer support.
func OpenCard(num int) (*DRMCard, error) {
	file, err := drm.OpenCard(num)
	if err != nil {
		return nil, fmt.Errorf("scanout: open card %d: %w", num, err)
	}
	if !drm.HasDumbBuffer(file) {
		_ = file.Close()
		return nil, ErrNoDumbBuffer
	}
	return &DRMCard{file: file}, nil
}

// ScanOutputs reports one descriptor per connected display, each with the
// preferred mode already chosen. The device never performs discovery
// itself; it only consumes the descriptors.
func (c *DRMCard) ScanOutputs() ([]Descriptor, error) {
	modeset, err := mode.NewSimpleModeset(c.file)
	if err != nil {
		return nil, fmt.Errorf("scanout: modeset discovery: %w", err)
	}
	descs := make([]Descriptor, 0, len(modeset.Modesets))
	for _, m := range modeset.Modesets {
		descs = append(descs, Descriptor{
			Conn:   m.Conn,
			Crtc:   m.Crtc,
			Width:  m.Width,
			Height: m.Height,
			Mode:   m.Mode,
		})
	}
	return descs, nil
}

func (c *DRMCard) CreateDumb(width, height uint16, bpp uint32) (handle, pitch uint32, size uint64, err error) {
	fb, err := mode.CreateFB(c.file, width, height, bpp)
	if err != nil {
		return 0, 0, 0, err
	}
	return fb.Handle, fb.Pitch, fb.Size, nil
}

func (c *DRMCard) AddFrame(width, height uint16, depth, bpp uint8, pitch, handle uint32) (uint32, error) {
	return mode.AddFB(c.file, width, height, depth, bpp, pitch, handle)
}

func (c *DRMCard) MapDumb(handle uint32, size uint64) ([]byte, error) {
	offset, err := mode.MapDumb(c.file, handle)
	if err != nil {
		return nil, err
	}
	data, err := gommap.MapAt(0, c.file.Fd(), int64(offset), int64(size),
		gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *DRMCard) Unmap(data []byte) error {
	return gommap.MMap(data).UnsafeUnmap()
}

func (c *DRMCard) RemoveFrame(frame uint32) error {
	return mode.RmFB(c.file, frame)
}

func (c *DRMCard) DestroyDumb(handle uint32) error {
	return mode.DestroyDumb(c.file, handle)
}

func (c *DRMCard) SaveCrtc(crtc uint32) (*mode.Crtc, error) {
	return mode.GetCrtc(c.file, crtc)
}

func (c *DRMCard) SetCrtc(crtc, frame, conn uint32, m *mode.Info) error {
	return mode.SetCrtc(c.file, crtc, frame, 0, 0, &conn, 1, m)
}

func (c *DRMCard) RestoreCrtc(saved *mode.Crtc, conn uint32) error {
	if saved == nil {
		return nil
	}
	var m *mode.Info
	if saved.ModeValid != 0 {
		m = &saved.Mode
	}
	return mode.SetCrtc(c.file, saved.ID, saved.BufferID, saved.X, saved.Y, &conn, 1, m)
}

// Power looks up the connector's DPMS property and sets it. Connectors
// without DPMS control are left alone.
func (c *DRMCard) Power(conn uint32, on bool) error {
	connector, err := mode.GetConnector(c.file, conn)
	if err != nil {
		return err
	}
	for _, propID := range connector.Props {
		prop, err := mode.GetProperty(c.file, propID)
		if err != nil || prop.Name != "DPMS" {
			continue
		}
		req := sysSetProperty{
			value:  dpmsOn,
			propID: propID,
			connID: conn,
		}
		if !on {
			req.value = dpmsOff
		}
		return ioctl.Do(c.file.Fd(), uintptr(ioctlModeSetProperty),
			uintptr(unsafe.Pointer(&req)))
	}
	return nil
}

func (c *DRMCard) PageFlip(crtc, frame uint32, token uint64) error {
	req := sysPageFlip{
		crtcID:   crtc,
		fbID:     frame,
		flags:    mode.PageFlipEvent,
		userData: token,
	}
	return ioctl.Do(c.file.Fd(), uintptr(ioctlModePageFlip),
		uintptr(unsafe.Pointer(&req)))
}

// ReadEvents blocks on the card until events are readable and decodes
// every complete event in the buffer. Vblank events without a flip are
// skipped; only flip completions are returned.
func (c *DRMCard) ReadEvents() ([]FlipEvent, error) {
	buf := make([]byte, 1024)
	n, err := c.file.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("scanout: read card events: %w", err)
	}

	var events []FlipEvent
	for off := 0; off+eventHeaderLen <= n; {
		typ := binary.NativeEndian.Uint32(buf[off:])
		length := int(binary.NativeEndian.Uint32(buf[off+4:]))
		if length < eventHeaderLen || off+length > n {
			break
		}
		if typ == eventFlipComplete && length >= 32 {
			events = append(events, FlipEvent{
				Token:    binary.NativeEndian.Uint64(buf[off+8:]),
				Sequence: binary.NativeEndian.Uint32(buf[off+24:]),
			})
		}
		off += length
	}
	return events, nil
}

func (c *DRMCard) Close() error {
	return c.file.Close()
}
