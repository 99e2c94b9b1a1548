package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"tyreworks/internal/config"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestMediaService(t *testing.T) *MediaService {
	t.Helper()
	return NewMediaService(
		config.FilesConfig{RootDir: t.TempDir()},
		config.RatingsConfig{MaxImages: 5, MaxDimension: 200, JPEGQuality: 80},
	)
}

func TestProcessRecompressesToBoundedJPEG(t *testing.T) {
	svc := newTestMediaService(t)

	paths, err := svc.Process("B1", "Wheel Alignment", []ImageUpload{
		{Filename: "big.png", Data: pngBytes(t, 800, 400)},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want 1", paths)
	}

	full := filepath.Join(svc.RootDir, filepath.FromSlash(paths[0]))
	out, err := imaging.Open(full)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	b := out.Bounds()
	if b.Dx() > 200 || b.Dy() > 200 {
		t.Fatalf("output %dx%d exceeds max dimension", b.Dx(), b.Dy())
	}
	// Aspect ratio survives the fit.
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("output %dx%d, want 200x100", b.Dx(), b.Dy())
	}
	if filepath.Ext(full) != ".jpg" {
		t.Fatalf("output %q should be a jpg", full)
	}
}

func TestProcessKeepsSmallImageDimensions(t *testing.T) {
	svc := newTestMediaService(t)

	paths, err := svc.Process("B1", "Wheel Alignment", []ImageUpload{
		{Filename: "small.png", Data: pngBytes(t, 120, 90)},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	out, err := imaging.Open(filepath.Join(svc.RootDir, filepath.FromSlash(paths[0])))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 120 || b.Dy() != 90 {
		t.Fatalf("output %dx%d, want untouched 120x90", b.Dx(), b.Dy())
	}
}

func TestProcessSkipsUndecodableImage(t *testing.T) {
	svc := newTestMediaService(t)

	paths, err := svc.Process("B1", "Wheel Alignment", []ImageUpload{
		{Filename: "corrupt.png", Data: []byte("this is not an image")},
		{Filename: "good.png", Data: pngBytes(t, 50, 50)},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want the one good image", paths)
	}
}

func TestProcessSequencesFilenames(t *testing.T) {
	svc := newTestMediaService(t)

	first, err := svc.Process("B1", "Wheel Alignment", []ImageUpload{
		{Filename: "a.png", Data: pngBytes(t, 50, 50)},
		{Filename: "b.png", Data: pngBytes(t, 50, 50)},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	// A later batch for the same pair must not overwrite earlier files.
	second, err := svc.Process("B1", "Wheel Alignment", []ImageUpload{
		{Filename: "c.png", Data: pngBytes(t, 50, 50)},
	})
	if err != nil {
		t.Fatalf("second process: %v", err)
	}

	seen := map[string]bool{}
	for _, p := range append(first, second...) {
		if seen[p] {
			t.Fatalf("duplicate path %q", p)
		}
		seen[p] = true
		if _, err := os.Stat(filepath.Join(svc.RootDir, filepath.FromSlash(p))); err != nil {
			t.Fatalf("stat %q: %v", p, err)
		}
	}
}

func TestRemoveDeletesFiles(t *testing.T) {
	svc := newTestMediaService(t)
	paths, err := svc.Process("B1", "Wheel Alignment", []ImageUpload{
		{Filename: "a.png", Data: pngBytes(t, 50, 50)},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	svc.Remove(paths)
	if _, err := os.Stat(filepath.Join(svc.RootDir, filepath.FromSlash(paths[0]))); !os.IsNotExist(err) {
		t.Fatalf("file should be gone, stat err = %v", err)
	}
	// Removing again is harmless.
	svc.Remove(paths)
}

func TestProcessNoUploads(t *testing.T) {
	svc := newTestMediaService(t)
	paths, err := svc.Process("B1", "Wheel Alignment", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if paths != nil {
		t.Fatalf("paths = %v, want nil", paths)
	}
}
