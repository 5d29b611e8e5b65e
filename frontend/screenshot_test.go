package frontend

import (
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestSaveScreenshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	path, err := SaveScreenshot(fs, "/shots", "Game", img, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatal(err)
	}
	if path != "/shots/Game/1700000000.png" {
		t.Errorf("path = %q", path)
	}

	f, err := fs.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v", decoded.Bounds())
	}
	if r, g, b, _ := decoded.At(2, 1).RGBA(); r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestSaveScreenshot_NoGameName(t *testing.T) {
	fs := afero.NewMemMapFs()
	path, err := SaveScreenshot(fs, "/shots", "", image.NewRGBA(image.Rect(0, 0, 1, 1)), time.Unix(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if path != "/shots/5.png" {
		t.Errorf("path = %q", path)
	}
}

func TestSaveScreenshot_NilImage(t *testing.T) {
	if _, err := SaveScreenshot(afero.NewMemMapFs(), "/shots", "Game", nil, time.Now()); err == nil {
		t.Error("nil image accepted")
	}
}
