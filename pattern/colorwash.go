package pattern

import "encoding/binary"

// Colorwash fills the whole surface with a solid color that drifts a
// little on every frame, one counter per channel. The zero value starts
// from black.
type Colorwash struct {
	r, g, b uint8
}

func (c *Colorwash) Paint(pix []byte, width, height, pitch int) {
	val := uint32(c.r)<<16 | uint32(c.g)<<8 | uint32(c.b)
	for y := 0; y < height; y++ {
		row := pix[y*pitch:]
		for x := 0; x < width; x++ {
			binary.LittleEndian.PutUint32(row[x*4:], val)
		}
	}
	c.r += 1
	c.g += 2
	c.b += 3
}
