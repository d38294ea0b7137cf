package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/luminance"
)

func writePNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writePNG(t, 40, 20, color.White)

	img, err := load(path, 0)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if img.Rect.Dx() != 40 || img.Rect.Dy() != 20 {
		t.Errorf("size = %v, want 40x20", img.Rect.Size())
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel = %v, want opaque white", got)
	}
}

func TestLoadScalesDown(t *testing.T) {
	path := writePNG(t, 40, 20, color.Black)

	img, err := load(path, 10)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if img.Rect.Dx() != 10 || img.Rect.Dy() != 5 {
		t.Errorf("size = %v, want 10x5", img.Rect.Size())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "missing.png"), 0); err == nil {
		t.Error("load of a missing file succeeded")
	}

	path := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := load(path, 0); err == nil {
		t.Error("load of garbage succeeded")
	}
}

func TestMeasure(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var current luminance.Target = luminance.NewImageTarget(img)

	dev := luminance.NewSoftwareDevice(luminance.SoftwareLatency(3))
	defer dev.Release()
	s := luminance.New(luminance.TargetSourceFunc(func() luminance.Target { return current }),
		luminance.WithDevice(dev))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// acquire, dispatch, three pending polls, done
	n, ok := measure(s, 10)
	if !ok || n != 6 {
		t.Errorf("measure = %d, %v, want 6, true", n, ok)
	}

	if _, ok := measure(s, 2); ok {
		t.Error("measure succeeded within fewer ticks than the latency")
	}
}
