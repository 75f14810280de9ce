package model

// EventKind identifies a presentation event.
type EventKind int

const (
	EventTargetChanged EventKind = iota
	EventVerdictDisplayed
	EventVerdictCleared
	EventStatsUpdated
	EventDetectionUpdated
	EventCameraStateChanged
	EventSessionEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventTargetChanged:
		return "target_changed"
	case EventVerdictDisplayed:
		return "verdict_displayed"
	case EventVerdictCleared:
		return "verdict_cleared"
	case EventStatsUpdated:
		return "stats_updated"
	case EventDetectionUpdated:
		return "detection_updated"
	case EventCameraStateChanged:
		return "camera_state_changed"
	case EventSessionEnded:
		return "session_ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by the session coordinator for the UI to render.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	Target      Target
	TargetIndex int
	TargetCount int

	Verdict Verdict

	Attempts int
	Correct  int

	Detection ClassificationResult

	CameraOn bool

	// Completed is set on SessionEnded when every target was passed or skipped.
	Completed bool

	Err error
}
