package scanout

import "fmt"

// bind makes the output's slot 0 buffer visible: the current CRTC state is
// saved for restoration, the chosen mode is set, and the connector is
// powered on. Binding obligates unbind to restore the saved state at
// shutdown.
func (d *Device) bind(o *Output) error {
	saved, err := d.card.SaveCrtc(o.desc.Crtc)
	if err != nil {
		return fmt.Errorf("%w: save CRTC %d: %v", ErrModeSet, o.desc.Crtc, err)
	}

	if err := d.card.SetCrtc(o.desc.Crtc, o.fb[0].frame, o.desc.Conn, &o.desc.Mode); err != nil {
		return fmt.Errorf("%w: connector %d: %v", ErrModeSet, o.desc.Conn, err)
	}
	o.saved = saved
	o.modeSet = true

	// DPMS failures leave the mode set intact.
	if err := d.card.Power(o.desc.Conn, true); err != nil {
		logf("power on connector %d: %v", o.desc.Conn, err)
	}
	return nil
}

// unbind restores whatever CRTC state preceded bind. It is a no-op unless
// bind succeeded earlier.
func (d *Device) unbind(o *Output) {
	if !o.modeSet {
		return
	}
	if err := d.card.RestoreCrtc(o.saved, o.desc.Conn); err != nil {
		logf("restore CRTC %d: %v", o.desc.Crtc, err)
	}
	o.saved = nil
	o.modeSet = false
}
