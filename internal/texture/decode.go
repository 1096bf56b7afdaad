package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/transform"
)

var ErrUnsupportedFormat = errors.New("texture: unsupported format")

// Format is Unity's TextureFormat.
type Format int32

const (
	Alpha8   Format = 1
	ARGB4444 Format = 2
	RGB24    Format = 3
	RGBA32   Format = 4
	ARGB32   Format = 5
	RGB565   Format = 7
	DXT1     Format = 10
	DXT5     Format = 12
	RGBA4444 Format = 13
	BGRA32   Format = 14
	R8       Format = 63
)

var formatNames = map[Format]string{
	Alpha8: "Alpha8", ARGB4444: "ARGB4444", RGB24: "RGB24", RGBA32: "RGBA32",
	ARGB32: "ARGB32", RGB565: "RGB565", DXT1: "DXT1", DXT5: "DXT5",
	RGBA4444: "RGBA4444", BGRA32: "BGRA32", R8: "R8",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int32(f))
}

// pixel formats: bytes per pixel and the texel reader
var pixelFormats = map[Format]struct {
	bpp  int
	read func(p []byte) color.NRGBA
}{
	Alpha8: {1, func(p []byte) color.NRGBA { return color.NRGBA{255, 255, 255, p[0]} }},
	R8:     {1, func(p []byte) color.NRGBA { return color.NRGBA{p[0], 0, 0, 255} }},
	RGB24:  {3, func(p []byte) color.NRGBA { return color.NRGBA{p[0], p[1], p[2], 255} }},
	RGBA32: {4, func(p []byte) color.NRGBA { return color.NRGBA{p[0], p[1], p[2], p[3]} }},
	ARGB32: {4, func(p []byte) color.NRGBA { return color.NRGBA{p[1], p[2], p[3], p[0]} }},
	BGRA32: {4, func(p []byte) color.NRGBA { return color.NRGBA{p[2], p[1], p[0], p[3]} }},
	RGB565: {2, func(p []byte) color.NRGBA {
		c := rgb565(binary.LittleEndian.Uint16(p))
		c.A = 255
		return c
	}},
	ARGB4444: {2, func(p []byte) color.NRGBA {
		v := binary.LittleEndian.Uint16(p)
		return color.NRGBA{nib(v >> 8), nib(v >> 4), nib(v), nib(v >> 12)}
	}},
	RGBA4444: {2, func(p []byte) color.NRGBA {
		v := binary.LittleEndian.Uint16(p)
		return color.NRGBA{nib(v >> 12), nib(v >> 8), nib(v >> 4), nib(v)}
	}},
}

func nib(v uint16) uint8 { return uint8(v&0xF) * 17 }

func rgb565(v uint16) color.NRGBA {
	r := uint8(v>>11) & 0x1F
	g := uint8(v>>5) & 0x3F
	b := uint8(v) & 0x1F
	return color.NRGBA{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 0}
}

// Decode converts the first mip level of data to an image. Unity stores rows
// bottom-up; the result is flipped to the usual top-down order.
func Decode(format Format, width, height int, data []byte) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture: bad size %dx%d", width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	switch format {
	case DXT1, DXT5:
		if err := decodeDXT(img, format, data); err != nil {
			return nil, err
		}
	default:
		pf, ok := pixelFormats[format]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
		}
		if need := width * height * pf.bpp; len(data) < need {
			return nil, fmt.Errorf("texture: %v %dx%d needs %d bytes, have %d", format, width, height, need, len(data))
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * pf.bpp
				img.SetNRGBA(x, y, pf.read(data[i:i+pf.bpp]))
			}
		}
	}
	return transform.FlipV(img), nil
}

func decodeDXT(img *image.NRGBA, format Format, data []byte) error {
	blockSize := 8
	if format == DXT5 {
		blockSize = 16
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bw, bh := (w+3)/4, (h+3)/4
	if need := bw * bh * blockSize; len(data) < need {
		return fmt.Errorf("texture: %v %dx%d needs %d bytes, have %d", format, w, h, need, len(data))
	}

	var alpha [16]uint8
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			block := data[(by*bw+bx)*blockSize:][:blockSize]
			if format == DXT5 {
				decodeAlpha(&alpha, block[:8])
				block = block[8:]
			}
			colors := colorTable(block, format == DXT1)
			idx := binary.LittleEndian.Uint32(block[4:])
			for i := 0; i < 16; i++ {
				x, y := bx*4+i%4, by*4+i/4
				if x >= w || y >= h {
					continue
				}
				c := colors[idx>>(2*i)&3]
				if format == DXT5 {
					c.A = alpha[i]
				}
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return nil
}

func colorTable(block []byte, punchThrough bool) [4]color.NRGBA {
	v0 := binary.LittleEndian.Uint16(block)
	v1 := binary.LittleEndian.Uint16(block[2:])
	c0, c1 := rgb565(v0), rgb565(v1)
	c0.A, c1.A = 255, 255
	mix := func(a, b uint8, wa, wb, d int) uint8 { return uint8((int(a)*wa + int(b)*wb) / d) }
	var t [4]color.NRGBA
	t[0], t[1] = c0, c1
	if punchThrough && v0 <= v1 {
		t[2] = color.NRGBA{mix(c0.R, c1.R, 1, 1, 2), mix(c0.G, c1.G, 1, 1, 2), mix(c0.B, c1.B, 1, 1, 2), 255}
		t[3] = color.NRGBA{}
		return t
	}
	t[2] = color.NRGBA{mix(c0.R, c1.R, 2, 1, 3), mix(c0.G, c1.G, 2, 1, 3), mix(c0.B, c1.B, 2, 1, 3), 255}
	t[3] = color.NRGBA{mix(c0.R, c1.R, 1, 2, 3), mix(c0.G, c1.G, 1, 2, 3), mix(c0.B, c1.B, 1, 2, 3), 255}
	return t
}

func decodeAlpha(out *[16]uint8, block []byte) {
	a0, a1 := int(block[0]), int(block[1])
	var t [8]uint8
	t[0], t[1] = uint8(a0), uint8(a1)
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			t[i+1] = uint8(((7-i)*a0 + i*a1) / 7)
		}
	} else {
		for i := 1; i < 5; i++ {
			t[i+1] = uint8(((5-i)*a0 + i*a1) / 5)
		}
		t[6], t[7] = 0, 255
	}
	var bits uint64
	for i := 7; i >= 2; i-- {
		bits = bits<<8 | uint64(block[i])
	}
	for i := range out {
		out[i] = t[bits>>(3*i)&7]
	}
}
