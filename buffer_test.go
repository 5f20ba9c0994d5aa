package scanout

import (
	"errors"
	"testing"
)

func TestFreeBufferIdempotent(t *testing.T) {
	card := newFakeCard()
	dev := NewDevice(card, nil)
	o, err := dev.AddOutput(testDesc(1, 11, 32, 32))
	if err != nil {
		t.Fatalf("AddOutput: %v", err)
	}

	fb := &o.fb[0]
	if err = dev.freeBuffer(fb); err != nil {
		t.Fatalf("freeBuffer: %v", err)
	}
	if fb.handle != 0 || fb.frame != 0 || fb.pitch != 0 || fb.size != 0 || fb.data != nil {
		t.Errorf("expected a fully torn down buffer, got %+v", fb)
	}

	unmaps, removes, destroys := card.unmapCalls, card.removeCalls, card.destroyCalls
	if err = dev.freeBuffer(fb); err != nil {
		t.Fatalf("second freeBuffer: %v", err)
	}
	if card.unmapCalls != unmaps || card.removeCalls != removes || card.destroyCalls != destroys {
		t.Error("expected no kernel calls from a second freeBuffer")
	}
}

func TestAllocationFailureStages(t *testing.T) {
	tests := []struct {
		name string
		fail func(*fakeCard)
		want error
	}{
		{"creation", func(c *fakeCard) { c.failCreate = true }, ErrCreate},
		{"registration", func(c *fakeCard) { c.failRegister = true }, ErrRegister},
		{"mapping", func(c *fakeCard) { c.failMap = true }, ErrMap},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			card := newFakeCard()
			test.fail(card)
			dev := NewDevice(card, nil)

			if _, err := dev.AddOutput(testDesc(1, 11, 32, 32)); !errors.Is(err, test.want) {
				t.Fatalf("expected %v, got %v", test.want, err)
			}

			// whatever was acquired before the failing stage must be
			// released again
			if len(card.handles) != 0 {
				t.Errorf("%d allocation handles leaked", len(card.handles))
			}
			if len(card.frames) != 0 {
				t.Errorf("%d frame registrations leaked", len(card.frames))
			}
			if len(card.mapped) != 0 {
				t.Errorf("%d mappings leaked", len(card.mapped))
			}
			if len(dev.Outputs()) != 0 {
				t.Error("expected the failed output not to be added")
			}
		})
	}
}

func TestAllocationFailureIsolation(t *testing.T) {
	card := newFakeCard()
	dev := NewDevice(card, nil)

	a, err := dev.AddOutput(testDesc(1, 11, 32, 32))
	if err != nil {
		t.Fatalf("AddOutput a: %v", err)
	}

	card.failMap = true
	if _, err = dev.AddOutput(testDesc(2, 12, 32, 32)); !errors.Is(err, ErrMap) {
		t.Fatalf("expected ErrMap for output b, got %v", err)
	}
	card.failMap = false

	if len(dev.Outputs()) != 1 {
		t.Fatalf("expected 1 surviving output, got %d", len(dev.Outputs()))
	}

	// the survivor keeps receiving frames
	p := new(countPainter)
	if alive := dev.Tick(p); alive != 1 {
		t.Errorf("expected 1 output alive, got %d", alive)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 paint call, got %d", p.calls)
	}
	if a.Failed() {
		t.Error("expected output a to stay usable")
	}
}

func TestBufferIdentityAcrossSwap(t *testing.T) {
	card := newFakeCard()
	dev := NewDevice(card, nil)
	o, err := dev.AddOutput(testDesc(1, 11, 4, 2))
	if err != nil {
		t.Fatalf("AddOutput: %v", err)
	}

	pix, _, _, _ := o.Surface()
	pix[0] = 0xaa

	// two presents push slot 0 on screen and rotate back to it
	if err = dev.Present(o); err != nil {
		t.Fatalf("first Present: %v", err)
	}
	if err = dev.Present(o); err != nil {
		t.Fatalf("second Present: %v", err)
	}
	if err = dev.drain(o); err != nil {
		t.Fatalf("drain: %v", err)
	}

	again, _, _, _ := o.Surface()
	if &again[0] != &pix[0] {
		t.Fatal("expected the same mapping after the swap, not a copy")
	}
	if again[0] != 0xaa {
		t.Errorf("expected written content to survive the swap, got %#02x", again[0])
	}
}

func TestBuffersZeroFilled(t *testing.T) {
	card := newFakeCard()
	dev := NewDevice(card, nil)
	o, err := dev.AddOutput(testDesc(1, 11, 8, 2))
	if err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	for slot := 0; slot < 2; slot++ {
		for i, b := range o.fb[slot].data {
			if b != 0 {
				t.Fatalf("slot %d byte %d not zeroed: %#02x", slot, i, b)
			}
		}
	}
}
