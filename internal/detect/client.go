// Package detect talks to the sign recognition service.
package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 4 << 20
)

// Detector classifies a sample against a target label.
type Detector interface {
	Detect(ctx context.Context, sample model.Sample, targetLabel string) (model.ClassificationResult, error)
}

// ErrEmptySample rejects a sample with no image data before any request is
// made. It is a caller error, not a per-tick failure.
var ErrEmptySample = errors.New("detect: sample is empty")

// NetworkError wraps transport failures: dial, timeout, truncated body.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("detect %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError reports a response the service produced but that carries no
// usable classification.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("detect service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("detect service error: %s", e.Message)
}

// IsTransient reports whether err is a per-tick failure that the caller
// should log and move past.
func IsTransient(err error) bool {
	var netErr *NetworkError
	var svcErr *ServiceError
	return errors.As(err, &netErr) || errors.As(err, &svcErr)
}

// Client posts samples to the detection endpoint.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for the detection endpoint. A zero timeout uses 10s.
func NewClient(url, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type detectRequest struct {
	Image      string `json:"image"`
	TargetSign string `json:"target_sign"`
}

type detectResponse struct {
	Success        bool               `json:"success"`
	Error          string             `json:"error"`
	HandsDetected  bool               `json:"hands_detected"`
	NumHands       int                `json:"num_hands"`
	Classification *classification    `json:"classification"`
	Landmarks      [][]model.Landmark `json:"landmarks"`
}

type classification struct {
	Prediction string   `json:"prediction"`
	Confidence float64  `json:"confidence"`
	IsCorrect  bool     `json:"is_correct"`
	Feedback   feedback `json:"feedback"`
}

type feedback struct {
	Message string `json:"message"`
}

// Detect sends one sample. It keeps no state between calls.
func (c *Client) Detect(ctx context.Context, sample model.Sample, targetLabel string) (model.ClassificationResult, error) {
	if len(sample.Data) == 0 {
		return model.ClassificationResult{}, ErrEmptySample
	}
	body, err := json.Marshal(detectRequest{
		Image:      encodeDataURL(sample),
		TargetSign: targetLabel,
	})
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if sample.TraceID != "" {
		req.Header.Set("X-Trace-Id", sample.TraceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ClassificationResult{}, &NetworkError{Op: "request", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.ClassificationResult{}, &NetworkError{Op: "read", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.ClassificationResult{}, &ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	var payload detectResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.ClassificationResult{}, &ServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid response: %v", err)}
	}
	return toResult(payload)
}

func toResult(payload detectResponse) (model.ClassificationResult, error) {
	if !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = "request was not successful"
		}
		return model.ClassificationResult{}, &ServiceError{Message: msg}
	}
	if !payload.HandsDetected {
		return model.ClassificationResult{}, nil
	}
	result := model.ClassificationResult{
		HandsDetected: true,
		NumHands:      payload.NumHands,
		Landmarks:     payload.Landmarks,
	}
	if result.NumHands == 0 {
		result.NumHands = 1
	}
	if c := payload.Classification; c != nil {
		result.PredictedLabel = c.Prediction
		result.Confidence = clamp01(c.Confidence)
		result.IsCorrect = c.IsCorrect
		result.FeedbackMessage = strings.TrimSpace(c.Feedback.Message)
	}
	return result, nil
}

func encodeDataURL(sample model.Sample) string {
	contentType := sample.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(sample.Data)
}

func errorMessage(raw []byte, status string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return status
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
