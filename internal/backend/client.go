// Package backend is the HTTP client for the tutor's REST API: sessions,
// progress records and the sign catalog.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// ErrUnsuccessful is returned when the API answers with success=false.
var ErrUnsuccessful = errors.New("api request was not successful")

// APIError is a non-2xx answer.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Client calls the REST API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A zero timeout uses 10s.
func NewClient(baseURL, token, userID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userID:     userID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type startSessionRequest struct {
	Category string `json:"category"`
	UserID   string `json:"user_id,omitempty"`
}

type startSessionResponse struct {
	envelope
	Session struct {
		ID json.RawMessage `json:"id"`
	} `json:"session"`
}

type recordRequest struct {
	Category  string `json:"category"`
	SignName  string `json:"sign_name"`
	Correct   bool   `json:"correct"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

type signsResponse struct {
	envelope
	Signs []sign `json:"signs"`
}

type sign struct {
	Name     string `json:"name"`
	Hint     string `json:"hint"`
	ImageURL string `json:"imageUrl"`
}

// StartSession opens a remote session for the module.
func (c *Client) StartSession(ctx context.Context, moduleID string) (string, error) {
	var resp startSessionResponse
	req := startSessionRequest{Category: moduleID, UserID: c.userID}
	if err := c.do(ctx, http.MethodPost, "/api/session/start", req, &resp); err != nil {
		return "", err
	}
	if err := resp.check(); err != nil {
		return "", err
	}
	id := sessionID(resp.Session.ID)
	if id == "" {
		return "", fmt.Errorf("session start response has no id")
	}
	return id, nil
}

// EndSession closes a remote session.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	var resp envelope
	path := "/api/session/" + url.PathEscape(sessionID) + "/end"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return err
	}
	return resp.check()
}

// RecordAttempt posts one progress record.
func (c *Client) RecordAttempt(ctx context.Context, rec model.AttemptRecord) error {
	var resp envelope
	req := recordRequest{
		Category:  rec.ModuleID,
		SignName:  rec.TargetLabel,
		Correct:   rec.IsCorrect,
		SessionID: rec.SessionID,
		UserID:    c.userID,
	}
	if err := c.do(ctx, http.MethodPost, "/api/progress/record", req, &resp); err != nil {
		return err
	}
	return resp.check()
}

// GetTargets lists the signs of a module in practice order.
func (c *Client) GetTargets(ctx context.Context, moduleID string) ([]model.Target, error) {
	path := "/api/signs/" + url.PathEscape(moduleID)
	if c.userID != "" {
		path += "?user_id=" + url.QueryEscape(c.userID)
	}
	var resp signsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	targets := make([]model.Target, 0, len(resp.Signs))
	for _, s := range resp.Signs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		targets = append(targets, model.Target{
			ID:           moduleID + "/" + name,
			Label:        name,
			Hint:         s.Hint,
			DisplayAsset: s.ImageURL,
		})
	}
	return targets, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		msg := resp.Status
		if json.Unmarshal(raw, &env) == nil {
			msg = firstNonEmpty(env.Error, env.Message, msg)
		}
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (e envelope) check() error {
	if e.Success {
		return nil
	}
	if msg := firstNonEmpty(e.Error, e.Message); msg != "" {
		return fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
	}
	return ErrUnsuccessful
}

// sessionID accepts both string and numeric ids.
func sessionID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
