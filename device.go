package scanout

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Device owns one card handle and the outputs presenting on it.
//
// A Device is not safe for concurrent use; the whole engine is driven by
// one goroutine, and the only blocking point is the completion wait inside
// [Device.Present].
type Device struct {
	card    Card
	config  Config
	outputs []*Output

	// byToken resolves flip completion back-references to outputs. Tokens
	// are handed out by AddOutput; pointer identity is never relied on.
	byToken   map[uint64]*Output
	nextToken uint64
	lit       bool
}

// NewDevice wraps an open card. A nil config uses the defaults.
func NewDevice(card Card, config *Config) *Device {
	d := &Device{
		card:    card,
		byToken: make(map[uint64]*Output),
		// token 0 is never used so a zeroed completion cannot alias an output
		nextToken: 1,
	}
	if config != nil {
		d.config = *config
	}
	return d
}

// AddOutput allocates buffers for the described output, binds its mode and
// powers it on. On any failure everything already acquired for this output
// is released again and the device is left as it was; other outputs are
// unaffected.
func (d *Device) AddOutput(desc Descriptor) (*Output, error) {
	o := &Output{
		desc:  desc,
		token: d.nextToken,
	}

	slots := 2
	if d.config.SingleBuffer {
		slots = 1
	}
	for i := 0; i < slots; i++ {
		if err := d.createBuffer(o, i); err != nil {
			d.freeOutput(o)
			return nil, err
		}
	}

	if err := d.bind(o); err != nil {
		d.freeOutput(o)
		return nil, err
	}

	d.nextToken++
	d.byToken[o.token] = o
	d.outputs = append(d.outputs, o)

	if d.config.Backlight != nil && !d.lit {
		if err := d.config.Backlight.Out(gpio.High); err != nil {
			logf("backlight on: %v", err)
		}
		d.lit = true
	}
	return o, nil
}

// Outputs returns every output added so far, usable or not, in creation
// order.
func (d *Device) Outputs() []*Output { return d.outputs }

// freeOutput releases the output's buffers in reverse slot order.
func (d *Device) freeOutput(o *Output) {
	for i := len(o.fb) - 1; i >= 0; i-- {
		_ = d.freeBuffer(&o.fb[i])
	}
}

// Close tears the device down: pending flips are drained, modes restored
// and buffers released in reverse creation order, then the card handle is
// closed. Teardown is best effort; the first error is reported but never
// stops the remaining steps.
func (d *Device) Close() error {
	var first error
	for i := len(d.outputs) - 1; i >= 0; i-- {
		o := d.outputs[i]
		if o.inFlight && !o.failed {
			if err := d.drain(o); err != nil {
				logf("drain connector %d: %v", o.desc.Conn, err)
				if first == nil {
					first = err
				}
			}
		}
		d.unbind(o)
		d.freeOutput(o)
		delete(d.byToken, o.token)
	}
	d.outputs = nil

	if d.config.Backlight != nil && d.lit {
		if err := d.config.Backlight.Out(gpio.Low); err != nil {
			logf("backlight off: %v", err)
		}
		d.lit = false
	}

	if err := d.card.Close(); err != nil {
		if first == nil {
			first = fmt.Errorf("scanout: close card: %w", err)
		}
	}
	return first
}
