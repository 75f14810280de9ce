package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

const (
	firstFrameTimeout = 5 * time.Second
	stopTimeout       = 3 * time.Second
)

// FFmpegSource keeps one ffmpeg process reading the camera and streaming MJPEG
// on stdout. Only the most recent frame is retained; Capture returns a copy of it.
type FFmpegSource struct {
	cfg    model.CameraConfig
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	done    chan struct{}
	latest  []byte
	readErr error
	seq     uint64
	first   chan struct{}
	active  bool
}

// NewFFmpegSource returns a source for the configured device. Zero values are
// replaced with 640x480 and JPEG quality 80.
func NewFFmpegSource(cfg model.CameraConfig) *FFmpegSource {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = defaultQuality
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = defaultInputFormat()
	}
	if cfg.Device == "" {
		cfg.Device = defaultDevice()
	}
	return &FFmpegSource{cfg: cfg, logger: slog.Default()}
}

// SetLogger replaces the logger used for ffmpeg diagnostics.
func (s *FFmpegSource) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Start launches ffmpeg and blocks until the first frame arrives.
func (s *FFmpegSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ffmpegPath := s.cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg not found: %v", ErrDevice, err)
	}
	if strings.HasPrefix(s.cfg.Device, "/dev/") {
		if _, err := os.Stat(s.cfg.Device); err != nil {
			return fmt.Errorf("%w: %v", ErrDevice, err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, resolved, s.args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("%w: failed to open ffmpeg stdout: %v", ErrDevice, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: failed to start ffmpeg: %v", ErrDevice, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.cancel = cancel
	s.done = make(chan struct{})
	s.first = make(chan struct{})
	s.latest = nil
	s.readErr = nil
	s.active = true
	first, done := s.first, s.done
	s.mu.Unlock()

	go s.readLoop(stdout, first, done)

	timer := time.NewTimer(firstFrameTimeout)
	defer timer.Stop()
	select {
	case <-first:
		s.logger.Info("camera started", "device", s.cfg.Device, "format", s.cfg.InputFormat)
		return nil
	case <-done:
		_ = s.Stop()
		return fmt.Errorf("%w: ffmpeg exited: %s", ErrDevice, strings.TrimSpace(stderr.String()))
	case <-timer.C:
		_ = s.Stop()
		return fmt.Errorf("%w: no frame within %s", ErrDevice, firstFrameTimeout)
	case <-ctx.Done():
		_ = s.Stop()
		return ctx.Err()
	}
}

func (s *FFmpegSource) readLoop(r io.Reader, first, done chan struct{}) {
	defer close(done)
	fr := newFrameReader(r)
	gotFirst := false
	for {
		frame, err := fr.Next()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
		if !gotFirst {
			gotFirst = true
			close(first)
		}
	}
}

// Capture returns the most recent frame.
func (s *FFmpegSource) Capture(_ context.Context) (model.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return model.Sample{}, ErrCapture
	}
	if s.readErr != nil {
		return model.Sample{}, fmt.Errorf("%w: %v", ErrCapture, s.readErr)
	}
	if len(s.latest) == 0 {
		return model.Sample{}, fmt.Errorf("%w: no frame yet", ErrCapture)
	}
	s.seq++
	data := make([]byte, len(s.latest))
	copy(data, s.latest)
	return newSample(data, s.seq), nil
}

// Stop kills ffmpeg and waits briefly for the reader to drain.
func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	cmd, cancel, done := s.cmd, s.cancel, s.done
	s.cmd, s.cancel = nil, nil
	s.latest = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.logger.Warn("ffmpeg reader did not exit in time", "device", s.cfg.Device)
	}
	if err := cmd.Wait(); err != nil {
		// A killed ffmpeg always exits non-zero.
		s.logger.Debug("ffmpeg exited", "device", s.cfg.Device, "err", err)
	}
	s.logger.Info("camera stopped", "device", s.cfg.Device)
	return nil
}

func (s *FFmpegSource) args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", s.cfg.InputFormat,
		"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"-i", s.cfg.Device,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(jpegQScale(s.cfg.Quality)),
		"pipe:1",
	}
}

// jpegQScale maps a 1-100 quality to ffmpeg's 2 (best) to 31 (worst) scale.
func jpegQScale(quality int) int {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	q := 2 + (100-quality)*29/99
	if q < 2 {
		q = 2
	}
	if q > 31 {
		q = 31
	}
	return q
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}

func defaultDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return "0"
	case "windows":
		return "video=Integrated Camera"
	default:
		return "/dev/video0"
	}
}

// frameReader splits an MJPEG byte stream into JPEG images on SOI/EOI markers.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(r, 64*1024)}
}

var errTruncatedFrame = errors.New("truncated jpeg frame")

func (f *frameReader) Next() ([]byte, error) {
	// Seek to start-of-image.
	var prev byte
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if prev == 0xFF && b == 0xD8 {
			break
		}
		prev = b
	}
	buf := bytes.NewBuffer(make([]byte, 0, 64*1024))
	buf.Write([]byte{0xFF, 0xD8})
	prev = 0
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errTruncatedFrame
			}
			return nil, err
		}
		buf.WriteByte(b)
		if prev == 0xFF && b == 0xD9 {
			return buf.Bytes(), nil
		}
		prev = b
	}
}
