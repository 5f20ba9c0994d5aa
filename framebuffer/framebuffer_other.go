//go:build !linux

package framebuffer

import "errors"

var ErrNotSupported = errors.New("framebuffer: not supported")

// FrameBuffer is an open, mapped framebuffer device.
type FrameBuffer struct{}

func Open(_ string) (*FrameBuffer, error) {
	return nil, ErrNotSupported
}

func (fb *FrameBuffer) Surface() (pix []byte, width, height, pitch int) {
	return nil, 0, 0, 0
}

func (fb *FrameBuffer) Blank(_ bool) error { return ErrNotSupported }

func (fb *FrameBuffer) Close() error { return ErrNotSupported }
