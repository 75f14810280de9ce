// Package model defines shared data structures.
package model

import "time"

// Config defines practice settings.
type Config struct {
	Module          string
	TargetsFile     string
	Interval        time.Duration
	DisplayDuration time.Duration
	Simulate        bool
	SimHandsPct     float64
	SimCorrectPct   float64
	SimLatency      time.Duration
	Overlay         bool
}

// CameraConfig defines how frames are captured.
type CameraConfig struct {
	Device      string
	InputFormat string
	Width       int
	Height      int
	Quality     int
	FFmpegPath  string
	ImageDir    string
}

// ServiceConfig defines the remote collaborators.
type ServiceConfig struct {
	APIURL    string
	DetectURL string
	Token     string
	UserID    string
	Timeout   time.Duration
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Module string
	Since  *time.Time
	Last   int
}

// Target is one learnable sign.
type Target struct {
	ID           string
	Label        string
	Hint         string
	DisplayAsset string
}

// Sample is one captured still image.
type Sample struct {
	Data        []byte
	ContentType string
	CapturedAt  time.Time
	Seq         uint64
	TraceID     string
}

// Landmark is a normalized hand keypoint.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ClassificationResult is the outcome of one detection request.
type ClassificationResult struct {
	HandsDetected   bool
	NumHands        int
	PredictedLabel  string
	Confidence      float64
	IsCorrect       bool
	FeedbackMessage string
	Landmarks       [][]Landmark
}

// Verdict is a settled correct/incorrect judgment.
type Verdict struct {
	TargetLabel string
	IsCorrect   bool
	Message     string
	Prediction  string
	Confidence  float64
	SettledAt   time.Time
}

// SessionStatus tracks the session lifecycle.
type SessionStatus int

const (
	StatusActive SessionStatus = iota
	StatusEnding
	StatusEnded
)

func (s SessionStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEnding:
		return "ending"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// SessionState is the coordinator's view of a running session.
type SessionState struct {
	SessionID   string
	ModuleID    string
	TargetIndex int
	Attempts    int
	Correct     int
	Status      SessionStatus
}

// Accuracy returns the rounded percentage of correct attempts.
func (s SessionState) Accuracy() int {
	return AccuracyPct(s.Correct, s.Attempts)
}

// AccuracyPct returns correct/attempts as a rounded percentage.
func AccuracyPct(correct, attempts int) int {
	if attempts <= 0 {
		return 0
	}
	return int(float64(correct)/float64(attempts)*100 + 0.5)
}

// AttemptRecord is the persisted form of a settled verdict.
type AttemptRecord struct {
	SessionID   string
	ModuleID    string
	TargetLabel string
	IsCorrect   bool
	RecordedAt  time.Time
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID string
	ModuleID  string
	StartedAt time.Time
	EndedAt   *time.Time
	Attempts  int
	Correct   int
}

// TargetAggregate aggregates attempts for one target across sessions.
type TargetAggregate struct {
	Label    string
	Attempts int
	Correct  int
}
