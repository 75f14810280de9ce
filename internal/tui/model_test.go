package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/signtutor/internal/model"
	"github.com/verte-zerg/signtutor/internal/session"
)

type fakeSession struct {
	mu     sync.Mutex
	cmds   []session.Command
	err    error
	events chan model.Event
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan model.Event, 8)}
}

func (f *fakeSession) Dispatch(_ context.Context, cmd session.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return f.err
}

func (f *fakeSession) Events() <-chan model.Event {
	return f.events
}

func (f *fakeSession) commands() []session.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Command(nil), f.cmds...)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestKeysDispatchCommands(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want session.Command
	}{
		{name: "camera", key: runeKey('c'), want: session.CmdStartCamera},
		{name: "stop", key: runeKey('x'), want: session.CmdStopCamera},
		{name: "enter checks", key: tea.KeyMsg{Type: tea.KeyEnter}, want: session.CmdCheckNow},
		{name: "space checks", key: tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, want: session.CmdCheckNow},
		{name: "skip", key: runeKey('s'), want: session.CmdSkipTarget},
		{name: "end", key: runeKey('q'), want: session.CmdEndSession},
		{name: "esc ends", key: tea.KeyMsg{Type: tea.KeyEsc}, want: session.CmdEndSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeSession()
			m := NewModel(context.Background(), fs, "ASL Alphabet", false)
			_, cmd := m.Update(tt.key)
			if cmd == nil {
				t.Fatalf("expected a command")
			}
			if msg := cmd(); msg != nil {
				t.Fatalf("unexpected message %#v", msg)
			}
			got := fs.commands()
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestDispatchErrorIsShown(t *testing.T) {
	fs := newFakeSession()
	fs.err = session.ErrCameraOff
	m := NewModel(context.Background(), fs, "ASL Alphabet", false)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()
	if _, ok := msg.(commandErrMsg); !ok {
		t.Fatalf("expected commandErrMsg, got %#v", msg)
	}
	m.Update(msg)
	if !strings.Contains(m.View(), "check-now: "+session.ErrCameraOff.Error()) {
		t.Fatalf("expected error in view:\n%s", m.View())
	}
}

func TestEventsDriveView(t *testing.T) {
	fs := newFakeSession()
	m := NewModel(context.Background(), fs, "ASL Alphabet", false)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	events := []model.Event{
		{Kind: model.EventTargetChanged, Target: model.Target{Label: "B", Hint: "Flat hand, thumb tucked"}, TargetIndex: 1, TargetCount: 26},
		{Kind: model.EventCameraStateChanged, CameraOn: true},
		{Kind: model.EventDetectionUpdated, Detection: model.ClassificationResult{HandsDetected: true, NumHands: 1, PredictedLabel: "B", Confidence: 0.9}},
		{Kind: model.EventVerdictDisplayed, Verdict: model.Verdict{IsCorrect: true, Message: "Nailed it!"}},
		{Kind: model.EventStatsUpdated, Attempts: 3, Correct: 2},
	}
	for _, ev := range events {
		_, cmd := m.Update(eventMsg{event: ev})
		if cmd == nil {
			t.Fatalf("expected the model to keep listening after %s", ev.Kind)
		}
	}

	view := m.View()
	for _, want := range []string{"ASL Alphabet", "Sign 2 of 26", "B", "Flat hand, thumb tucked", "Nailed it!", "Confidence: 90%", "Prediction: B", "Attempts 3", "Accuracy 67%"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}

	m.Update(eventMsg{event: model.Event{Kind: model.EventVerdictCleared}})
	m.Update(eventMsg{event: model.Event{Kind: model.EventCameraStateChanged, CameraOn: false}})
	view = m.View()
	if strings.Contains(view, "Nailed it!") {
		t.Fatalf("expected verdict to be cleared:\n%s", view)
	}
	if !strings.Contains(view, "Camera off") || !strings.Contains(view, "Hands: 0") {
		t.Fatalf("expected camera off state:\n%s", view)
	}
}

func TestSessionEndedSummary(t *testing.T) {
	fs := newFakeSession()
	m := NewModel(context.Background(), fs, "ASL Numbers", false)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.Update(eventMsg{event: model.Event{Kind: model.EventSessionEnded, Attempts: 4, Correct: 4, Completed: true}})

	view := m.View()
	if !strings.Contains(view, "Module complete!") || !strings.Contains(view, "Accuracy: 100%") {
		t.Fatalf("unexpected summary:\n%s", view)
	}

	_, cmd := m.Update(runeKey('z'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if len(fs.commands()) != 0 {
		t.Fatalf("expected no commands after the session ended")
	}
}

func TestWaitForEventClosed(t *testing.T) {
	ch := make(chan model.Event)
	close(ch)
	if _, ok := waitForEvent(ch)().(eventsClosedMsg); !ok {
		t.Fatalf("expected eventsClosedMsg")
	}
}

func TestOverlayRendersLandmarks(t *testing.T) {
	fs := newFakeSession()
	m := NewModel(context.Background(), fs, "ASL Alphabet", true)
	m.Update(eventMsg{event: model.Event{Kind: model.EventDetectionUpdated, Detection: model.ClassificationResult{
		HandsDetected: true,
		NumHands:      1,
		Landmarks:     [][]model.Landmark{{{X: 0.5, Y: 0.5}}},
	}}})
	if !strings.Contains(m.View(), "@") {
		t.Fatalf("expected landmark overlay:\n%s", m.View())
	}

	plain := NewModel(context.Background(), fs, "ASL Alphabet", false)
	plain.Update(eventMsg{event: model.Event{Kind: model.EventDetectionUpdated, Detection: model.ClassificationResult{
		HandsDetected: true,
		NumHands:      1,
		Landmarks:     [][]model.Landmark{{{X: 0.5, Y: 0.5}}},
	}}})
	if strings.Contains(plain.View(), "@") {
		t.Fatalf("expected no overlay when disabled")
	}
}

func TestErrorEvent(t *testing.T) {
	fs := newFakeSession()
	m := NewModel(context.Background(), fs, "ASL Alphabet", false)
	m.Update(eventMsg{event: model.Event{Kind: model.EventError, Err: errors.New("camera busy")}})
	if !strings.Contains(m.View(), "camera busy") {
		t.Fatalf("expected error text:\n%s", m.View())
	}
}
