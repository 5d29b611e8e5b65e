package libretro

// Frame is one video frame as handed to a VideoSink. Data is borrowed from
// the video pool and is only valid until the sink returns.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Pitch  int
	Format PixelFormat
	// Dupe is set when the core asked to show the previous frame again.
	Dupe bool
}

// ConvertToRGBA converts the frame to packed RGBA, reusing dst when it is
// large enough.
func (f Frame) ConvertToRGBA(dst []byte) []byte {
	need := f.Width * f.Height * 4
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	for y := 0; y < f.Height; y++ {
		row := f.Data[y*f.Pitch:]
		out := dst[y*f.Width*4:]
		switch f.Format {
		case PixelFormatXRGB8888:
			convertXRGB8888ToRGBA(row, out, f.Width)
		case PixelFormatRGB565:
			convertRGB565ToRGBA(row, out, f.Width)
		case PixelFormat0RGB1555:
			convert0RGB1555ToRGBA(row, out, f.Width)
		}
	}
	return dst
}

// convertXRGB8888ToRGBA converts little-endian XRGB8888 pixels to RGBA.
func convertXRGB8888ToRGBA(src, dst []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		srcIdx := i * 4
		dstIdx := i * 4
		dst[dstIdx+0] = src[srcIdx+2] // R
		dst[dstIdx+1] = src[srcIdx+1] // G
		dst[dstIdx+2] = src[srcIdx+0] // B
		dst[dstIdx+3] = 0xFF          // A
	}
}

// convertRGB565ToRGBA expands little-endian RGB565 pixels to RGBA.
func convertRGB565ToRGBA(src, dst []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		p := uint16(src[i*2]) | uint16(src[i*2+1])<<8
		r := byte(p >> 11 & 0x1F)
		g := byte(p >> 5 & 0x3F)
		b := byte(p & 0x1F)
		dst[i*4+0] = r<<3 | r>>2
		dst[i*4+1] = g<<2 | g>>4
		dst[i*4+2] = b<<3 | b>>2
		dst[i*4+3] = 0xFF
	}
}

// convert0RGB1555ToRGBA expands little-endian 0RGB1555 pixels to RGBA.
func convert0RGB1555ToRGBA(src, dst []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		p := uint16(src[i*2]) | uint16(src[i*2+1])<<8
		r := byte(p >> 10 & 0x1F)
		g := byte(p >> 5 & 0x1F)
		b := byte(p & 0x1F)
		dst[i*4+0] = r<<3 | r>>2
		dst[i*4+1] = g<<3 | g>>2
		dst[i*4+2] = b<<3 | b>>2
		dst[i*4+3] = 0xFF
	}
}
