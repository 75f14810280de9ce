// Package capture provides frame sources that produce still samples on demand.
//
// A source owns its device between Start and Stop. Stop is idempotent and
// always releases the device, including when Start failed halfway.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/signtutor/internal/model"
)

var (
	// ErrDevice reports that the capture device is unavailable or access was denied.
	ErrDevice = errors.New("capture device unavailable")
	// ErrCapture reports that a sample was requested without an active stream.
	ErrCapture = errors.New("no active capture stream")
)

const (
	defaultWidth   = 640
	defaultHeight  = 480
	defaultQuality = 80

	jpegContentType = "image/jpeg"
)

// Source produces samples from a capture device.
type Source interface {
	Start(ctx context.Context) error
	Capture(ctx context.Context) (model.Sample, error)
	Stop() error
}

func newSample(data []byte, seq uint64) model.Sample {
	return model.Sample{
		Data:        data,
		ContentType: jpegContentType,
		CapturedAt:  time.Now(),
		Seq:         seq,
		TraceID:     uuid.NewString(),
	}
}

// New picks a source for the camera config: an image directory when one is
// configured, ffmpeg otherwise.
func New(cfg model.CameraConfig) Source {
	if cfg.ImageDir != "" {
		return NewDirSource(cfg.ImageDir)
	}
	return NewFFmpegSource(cfg)
}
