package scanout

import (
	"errors"
	"fmt"

	"github.com/NeowayLabs/drm/mode"
)

// fakeCard is an in-memory Card. Completions for submitted flips are
// queued in submission order and delivered by ReadEvents; tests may
// reorder the queue or limit the batch size to model interleaved
// hardware delivery.
type fakeCard struct {
	nextHandle uint32
	nextFrame  uint32

	handles map[uint32]uint64 // allocation handle -> size
	frames  map[uint32]uint32 // frame id -> allocation handle
	mapped  map[uint32][]byte // allocation handle -> mapping

	pending map[uint64]uint32 // in-flight flip token -> crtc
	byCrtc  map[uint32]uint64 // crtc -> in-flight token
	queue   []FlipEvent
	batch   int // events per ReadEvents call, 0 means all

	flips    []uint32 // frame ids in submission order
	restored []uint32 // restored crtc ids
	powered  map[uint32]bool

	unmapCalls   int
	removeCalls  int
	destroyCalls int
	closed       bool

	failCreate   bool
	failRegister bool
	failMap      bool
	failModeSet  bool
	failFlip     bool
}

func newFakeCard() *fakeCard {
	return &fakeCard{
		nextHandle: 1,
		nextFrame:  100,
		handles:    make(map[uint32]uint64),
		frames:     make(map[uint32]uint32),
		mapped:     make(map[uint32][]byte),
		pending:    make(map[uint64]uint32),
		byCrtc:     make(map[uint32]uint64),
		powered:    make(map[uint32]bool),
	}
}

// testPitch pads every row by 8 bytes so pitch handling is exercised.
const testPadding = 8

func (c *fakeCard) CreateDumb(width, height uint16, bpp uint32) (handle, pitch uint32, size uint64, err error) {
	if c.failCreate {
		return 0, 0, 0, errors.New("create rejected")
	}
	handle = c.nextHandle
	c.nextHandle++
	pitch = uint32(width)*(bpp/8) + testPadding
	size = uint64(pitch) * uint64(height)
	c.handles[handle] = size
	return handle, pitch, size, nil
}

func (c *fakeCard) AddFrame(width, height uint16, depth, bpp uint8, pitch, handle uint32) (uint32, error) {
	if c.failRegister {
		return 0, errors.New("register rejected")
	}
	if _, ok := c.handles[handle]; !ok {
		return 0, fmt.Errorf("register of unknown handle %d", handle)
	}
	frame := c.nextFrame
	c.nextFrame++
	c.frames[frame] = handle
	return frame, nil
}

func (c *fakeCard) MapDumb(handle uint32, size uint64) ([]byte, error) {
	if c.failMap {
		return nil, errors.New("map rejected")
	}
	if _, ok := c.handles[handle]; !ok {
		return nil, fmt.Errorf("map of unknown handle %d", handle)
	}
	data := make([]byte, size)
	c.mapped[handle] = data
	return data, nil
}

func (c *fakeCard) Unmap(data []byte) error {
	c.unmapCalls++
	for handle, m := range c.mapped {
		if len(m) > 0 && len(data) > 0 && &m[0] == &data[0] {
			delete(c.mapped, handle)
			return nil
		}
	}
	return errors.New("unmap of unknown mapping")
}

func (c *fakeCard) RemoveFrame(frame uint32) error {
	c.removeCalls++
	if _, ok := c.frames[frame]; !ok {
		return fmt.Errorf("remove of unknown frame %d", frame)
	}
	delete(c.frames, frame)
	return nil
}

func (c *fakeCard) DestroyDumb(handle uint32) error {
	c.destroyCalls++
	if _, ok := c.handles[handle]; !ok {
		return fmt.Errorf("destroy of unknown handle %d", handle)
	}
	delete(c.handles, handle)
	return nil
}

func (c *fakeCard) SaveCrtc(crtc uint32) (*mode.Crtc, error) {
	return &mode.Crtc{ID: crtc, BufferID: 7}, nil
}

func (c *fakeCard) SetCrtc(crtc, frame, conn uint32, m *mode.Info) error {
	if c.failModeSet {
		return errors.New("mode set rejected")
	}
	if _, ok := c.frames[frame]; !ok {
		return fmt.Errorf("mode set with unknown frame %d", frame)
	}
	return nil
}

func (c *fakeCard) RestoreCrtc(saved *mode.Crtc, conn uint32) error {
	if saved == nil {
		return errors.New("restore without saved state")
	}
	c.restored = append(c.restored, saved.ID)
	return nil
}

func (c *fakeCard) Power(conn uint32, on bool) error {
	c.powered[conn] = on
	return nil
}

func (c *fakeCard) PageFlip(crtc, frame uint32, token uint64) error {
	if c.failFlip {
		return errors.New("flip rejected")
	}
	if tok, ok := c.byCrtc[crtc]; ok {
		return fmt.Errorf("flip on crtc %d while token %d still in flight", crtc, tok)
	}
	if _, ok := c.frames[frame]; !ok {
		return fmt.Errorf("flip with unknown frame %d", frame)
	}
	c.pending[token] = crtc
	c.byCrtc[crtc] = token
	c.flips = append(c.flips, frame)
	c.queue = append(c.queue, FlipEvent{Token: token, Sequence: uint32(len(c.flips))})
	return nil
}

func (c *fakeCard) ReadEvents() ([]FlipEvent, error) {
	if len(c.queue) == 0 {
		return nil, errors.New("read would block forever")
	}
	n := len(c.queue)
	if c.batch > 0 && c.batch < n {
		n = c.batch
	}
	events := c.queue[:n:n]
	c.queue = c.queue[n:]
	for _, ev := range events {
		if crtc, ok := c.pending[ev.Token]; ok {
			delete(c.byCrtc, crtc)
			delete(c.pending, ev.Token)
		}
	}
	return events, nil
}

func (c *fakeCard) Close() error {
	c.closed = true
	return nil
}

func testDesc(conn, crtc uint32, width, height uint16) Descriptor {
	return Descriptor{
		Conn:   conn,
		Crtc:   crtc,
		Width:  width,
		Height: height,
		Mode:   mode.Info{Hdisplay: width, Vdisplay: height},
	}
}

// countPainter fills nothing and counts calls.
type countPainter struct {
	calls int
}

func (p *countPainter) Paint(pix []byte, width, height, pitch int) {
	p.calls++
}
