package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder for stills that need re-encoding.
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/verte-zerg/signtutor/internal/model"
)

// DirSource replays still images from a directory in name order, cycling
// when it reaches the end.
type DirSource struct {
	dir string

	mu     sync.Mutex
	files  []string
	next   int
	seq    uint64
	active bool
}

// NewDirSource returns a source reading images from dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Start lists the directory. It fails with ErrDevice when the directory is
// missing or holds no images.
func (s *DirSource) Start(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(s.dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no images in %s", ErrDevice, s.dir)
	}
	sort.Strings(files)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
	s.next = 0
	s.active = true
	return nil
}

// Capture reads the next image. PNG files are re-encoded as JPEG.
func (s *DirSource) Capture(_ context.Context) (model.Sample, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return model.Sample{}, ErrCapture
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Sample{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".png") {
		data, err = reencodeJPEG(data)
		if err != nil {
			return model.Sample{}, fmt.Errorf("%w: %s: %v", ErrCapture, path, err)
		}
	}
	return newSample(data, seq), nil
}

// Stop releases the listing. Safe to call repeatedly.
func (s *DirSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.files = nil
	return nil
}

func reencodeJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: defaultQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
