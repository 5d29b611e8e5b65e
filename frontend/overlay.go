//go:build !headless

package frontend

import (
	"bytes"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	overlayFontSize = 16
	overlayPadding  = 8
	overlayMargin   = 16
)

var (
	overlayBackground = color.RGBA{0x10, 0x10, 0x18, 153}
	overlayText       = color.RGBA{0xF0, 0xF0, 0xF0, 0xFF}
)

// messageOverlay draws a short message in the bottom-right corner.
type messageOverlay struct {
	face text.Face
	bg   *ebiten.Image
}

// newMessageOverlay loads the bundled Go font. Without it, messages are
// logged but not drawn.
func newMessageOverlay() *messageOverlay {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		logger.Warn().Err(err).Msg("overlay font unavailable")
		return &messageOverlay{}
	}
	return &messageOverlay{face: &text.GoTextFace{Source: src, Size: overlayFontSize}}
}

// Draw renders msg on screen.
func (o *messageOverlay) Draw(screen *ebiten.Image, msg string) {
	if o.face == nil || msg == "" {
		return
	}
	w, h := text.Measure(msg, o.face, 0)
	bgW := int(w) + overlayPadding*2
	bgH := int(h) + overlayPadding*2
	x := screen.Bounds().Dx() - bgW - overlayMargin
	y := screen.Bounds().Dy() - bgH - overlayMargin

	if o.bg == nil || o.bg.Bounds().Dx() < bgW || o.bg.Bounds().Dy() < bgH {
		o.bg = ebiten.NewImage(bgW, bgH)
	}
	o.bg.Clear()
	o.bg.Fill(overlayBackground)

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(o.bg.SubImage(image.Rect(0, 0, bgW, bgH)).(*ebiten.Image), opts)

	textOpts := &text.DrawOptions{}
	textOpts.GeoM.Translate(float64(x+overlayPadding), float64(y+overlayPadding))
	textOpts.ColorScale.ScaleWithColor(overlayText)
	text.Draw(screen, msg, o.face, textOpts)
}
