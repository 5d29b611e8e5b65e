//go:build !headless

package frontend

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// FramebufferRenderer uploads RGBA frames to an offscreen image and draws
// them scaled to the screen at the core's display aspect ratio.
type FramebufferRenderer struct {
	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
}

// NewFramebufferRenderer creates an empty renderer.
func NewFramebufferRenderer() *FramebufferRenderer {
	return &FramebufferRenderer{}
}

// fitRect returns the scale factors and offset that fit a width x height
// frame shown at aspect into a screen, centred. A non-positive aspect
// keeps square pixels.
func fitRect(screenW, screenH, width, height int, aspect float64) (sx, sy, ox, oy float64) {
	if aspect <= 0 {
		aspect = float64(width) / float64(height)
	}
	displayW := float64(height) * aspect
	displayH := float64(height)

	scale := float64(screenW) / displayW
	if s := float64(screenH) / displayH; s < scale {
		scale = s
	}
	sx = displayW * scale / float64(width)
	sy = scale
	ox = (float64(screenW) - displayW*scale) / 2
	oy = (float64(screenH) - displayH*scale) / 2
	return
}

// DrawFramebuffer draws pixels, a packed width x height RGBA frame.
func (r *FramebufferRenderer) DrawFramebuffer(screen *ebiten.Image, pixels []byte, width, height int, aspect float64) {
	if width == 0 || height == 0 || len(pixels) < width*height*4 {
		return
	}
	if r.offscreen == nil || r.offscreen.Bounds().Dx() != width || r.offscreen.Bounds().Dy() != height {
		if r.offscreen != nil {
			r.offscreen.Deallocate()
		}
		r.offscreen = ebiten.NewImage(width, height)
	}
	r.offscreen.WritePixels(pixels[:width*height*4])

	sx, sy, ox, oy := fitRect(screen.Bounds().Dx(), screen.Bounds().Dy(), width, height, aspect)
	r.drawOpts = ebiten.DrawImageOptions{}
	r.drawOpts.GeoM.Scale(sx, sy)
	r.drawOpts.GeoM.Translate(ox, oy)
	r.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(r.offscreen, &r.drawOpts)
}
