package scanout

import "fmt"

// Present submits the output's back buffer for display at the next
// vertical blank and returns without waiting for the flip to complete.
// The wait happens on the *next* Present call for the same output (or at
// [Device.Close]): if a previous flip is still unacknowledged, Present
// first blocks consuming completion events from the shared card handle
// until this output's completion arrives. Completions for other outputs
// seen while blocked are applied immediately; the wait is a demultiplexing
// loop, not a single read.
//
// A submission failure drops the output from further frame production and
// is reported wrapped in [ErrSubmit]; the buffer already on screen stays
// visible. In single-buffer mode Present is a no-op, the visible buffer is
// written directly.
func (d *Device) Present(o *Output) error {
	if o.failed {
		return ErrDropped
	}
	if d.config.SingleBuffer {
		return nil
	}

	// The first Present has nothing outstanding and skips the wait.
	for o.inFlight {
		if err := d.handleEvents(); err != nil {
			o.failed = true
			return err
		}
	}

	fb := &o.fb[o.active]
	if err := d.card.PageFlip(o.desc.Crtc, fb.frame, o.token); err != nil {
		o.failed = true
		return fmt.Errorf("%w: connector %d: %v", ErrSubmit, o.desc.Conn, err)
	}
	o.inFlight = true
	return nil
}

// handleEvents consumes one batch of completion events and applies every
// one of them: the referenced output's active slot rotates to the other
// index and its pending flip is acknowledged, regardless of which output
// the caller is waiting on. Events are never reordered per output; the
// hardware delivers them in submission order.
func (d *Device) handleEvents() error {
	events, err := d.card.ReadEvents()
	if err != nil {
		return err
	}
	for _, ev := range events {
		o, ok := d.byToken[ev.Token]
		if !ok {
			if debug {
				logf("completion for unknown token %d", ev.Token)
			}
			continue
		}
		o.active ^= 1
		o.inFlight = false
	}
	return nil
}

// drain blocks until the output's outstanding flip completes. Like the
// wait in Present it has no timeout; a notification that never arrives
// blocks forever.
func (d *Device) drain(o *Output) error {
	for o.inFlight {
		if err := d.handleEvents(); err != nil {
			return err
		}
	}
	return nil
}
