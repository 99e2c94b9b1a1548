package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	"tyreworks/internal/config"
)

// ImageUpload is one customer-supplied photo, already read off the wire.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// MediaService recompresses rating photos into bounded JPEGs under the
// file root. Oversized originals never reach disk as-is.
type MediaService struct {
	RootDir string
	Cfg     config.RatingsConfig
}

func NewMediaService(files config.FilesConfig, cfg config.RatingsConfig) *MediaService {
	return &MediaService{RootDir: files.RootDir, Cfg: cfg}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Process recompresses each upload and writes it under
// <root>/ratings/<bookingID>_<service>_<n>.jpg. Undecodable images are
// skipped, not fatal; the returned paths are relative to the file root.
func (m *MediaService) Process(bookingID, service string, uploads []ImageUpload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	dir := filepath.Join(m.RootDir, "ratings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create dir: %w", err)
	}

	var paths []string
	seq := 1
	for _, up := range uploads {
		img, err := imaging.Decode(bytes.NewReader(up.Data), imaging.AutoOrientation(true))
		if err != nil {
			log.Printf("[media][process] skip undecodable image booking_id=%s file=%s err=%v", bookingID, up.Filename, err)
			continue
		}
		bounds := img.Bounds()
		if bounds.Dx() > m.Cfg.MaxDimension || bounds.Dy() > m.Cfg.MaxDimension {
			img = imaging.Fit(img, m.Cfg.MaxDimension, m.Cfg.MaxDimension, imaging.Lanczos)
		}

		name, seqOut := m.nextName(dir, bookingID, service, seq)
		seq = seqOut + 1
		full := filepath.Join(dir, name)
		if err := imaging.Save(img, full, imaging.JPEGQuality(m.Cfg.JPEGQuality)); err != nil {
			log.Printf("[media][process] save failed booking_id=%s file=%s err=%v", bookingID, name, err)
			continue
		}
		paths = append(paths, filepath.ToSlash(filepath.Join("ratings", name)))
	}
	return paths, nil
}

// Remove deletes previously written rating images, e.g. when the submission
// they belonged to turned out to be a duplicate.
func (m *MediaService) Remove(paths []string) {
	for _, p := range paths {
		if err := os.Remove(filepath.Join(m.RootDir, filepath.FromSlash(p))); err != nil && !os.IsNotExist(err) {
			log.Printf("[media][remove] %s: %v", p, err)
		}
	}
}

// nextName picks the first free sequence number for the pair, starting at
// the caller's counter.
func (m *MediaService) nextName(dir, bookingID, service string, seq int) (string, int) {
	slug := slugPattern.ReplaceAllString(strings.ToLower(service), "-")
	slug = strings.Trim(slug, "-")
	for {
		name := fmt.Sprintf("%s_%s_%d.jpg", bookingID, slug, seq)
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			return name, seq
		}
		seq++
	}
}
