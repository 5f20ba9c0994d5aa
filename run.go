package scanout

import "time"

// Tick produces one frame: for every usable output the painter fills the
// back buffer and the result is presented. Outputs whose presentation
// fails are dropped and the loop continues with the survivors. Tick
// reports how many outputs are still usable.
func (d *Device) Tick(p Painter) int {
	alive := 0
	for _, o := range d.outputs {
		if o.failed {
			continue
		}
		fb := &o.fb[o.active]
		if fb.data == nil {
			continue
		}
		p.Paint(fb.data, int(o.desc.Width), int(o.desc.Height), int(fb.pitch))
		if err := d.Present(o); err != nil {
			logf("dropping output on connector %d: %v", o.desc.Conn, err)
			continue
		}
		alive++
	}
	return alive
}

// Run drives the frame loop at the given interval until duration elapses.
// A zero interval uses [DefaultInterval]; a zero duration runs until every
// output has failed. Run returns [ErrNoOutputs] when no output is left to
// present on, nil on a clean timed stop.
func (d *Device) Run(p Painter, interval, duration time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var stop <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		stop = timer.C
	}

	for {
		if d.Tick(p) == 0 {
			return ErrNoOutputs
		}
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}
