package scanout

import "fmt"

// Pixel layout is fixed: 32 bits per pixel, 24 bit color depth (XRGB).
const (
	bufferBPP   = 32
	bufferDepth = 24
)

// Buffer is one kernel-backed pixel surface bound to an output slot. A
// buffer is either fully constructed or fully torn down; nil data is the
// unmapped sentinel.
type Buffer struct {
	handle uint32 // dumb buffer allocation handle
	pitch  uint32 // bytes per row, may exceed width*4
	size   uint64 // total mapped size
	frame  uint32 // framebuffer id used for mode sets and flips
	data   []byte // mapped pixel memory, nil when unmapped
}

// createBuffer allocates, registers and maps the buffer for one output
// slot and zero-fills it. On failure whatever was constructed is released
// again and the slot is left fully torn down.
func (d *Device) createBuffer(o *Output, slot int) error {
	fb := &o.fb[slot]

	handle, pitch, size, err := d.card.CreateDumb(o.desc.Width, o.desc.Height, bufferBPP)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreate, err)
	}
	fb.handle = handle
	fb.pitch = pitch
	fb.size = size

	frame, err := d.card.AddFrame(o.desc.Width, o.desc.Height, bufferDepth, bufferBPP, pitch, handle)
	if err != nil {
		_ = d.freeBuffer(fb)
		return fmt.Errorf("%w: %v", ErrRegister, err)
	}
	fb.frame = frame

	data, err := d.card.MapDumb(handle, size)
	if err != nil {
		_ = d.freeBuffer(fb)
		return fmt.Errorf("%w: %v", ErrMap, err)
	}
	for i := range data {
		data[i] = 0
	}
	fb.data = data

	if debug {
		logf("buffer slot %d on connector %d: handle %d frame %d pitch %d size %d",
			slot, o.desc.Conn, handle, frame, pitch, size)
	}
	return nil
}

// freeBuffer releases whatever parts of the buffer were constructed, in
// strict reverse order: unmap, deregister, destroy. It is idempotent and
// a failing step never stops the remaining ones; the first error is
// reported.
func (d *Device) freeBuffer(fb *Buffer) error {
	var first error
	if fb.data != nil {
		if err := d.card.Unmap(fb.data); err != nil {
			logf("unmap buffer: %v", err)
			first = err
		}
		fb.data = nil
	}
	if fb.frame != 0 {
		if err := d.card.RemoveFrame(fb.frame); err != nil {
			logf("remove framebuffer %d: %v", fb.frame, err)
			if first == nil {
				first = err
			}
		}
		fb.frame = 0
	}
	if fb.handle != 0 {
		if err := d.card.DestroyDumb(fb.handle); err != nil {
			logf("destroy dumb buffer %d: %v", fb.handle, err)
			if first == nil {
				first = err
			}
		}
		fb.handle = 0
	}
	fb.pitch = 0
	fb.size = 0
	return first
}
