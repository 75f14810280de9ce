package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestSparklineScalesToRange(t *testing.T) {
	if got := Sparkline([]float64{0, 50, 100}, 0, 100); got != " +@" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{3, 3}, 5, 5); got != "++" {
		t.Fatalf("unexpected flat sparkline: %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	ended := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions := []model.SessionAggregate{
		{SessionID: "a", Attempts: 4, Correct: 3, EndedAt: &ended},
		{SessionID: "b", Attempts: 4, Correct: 1},
		{SessionID: "c"},
	}
	var buf bytes.Buffer
	if err := RenderSummary(&buf, sessions); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 3 (1 ended)", "Attempts: 8", "Correct: 4", "Accuracy: 50%", "Best session: 75%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	if err := RenderSummary(&buf, nil); err != nil || !strings.Contains(buf.String(), "No sessions") {
		t.Fatalf("unexpected empty summary: %q %v", buf.String(), err)
	}
}

func TestRenderTrendFitsWidth(t *testing.T) {
	var sessions []model.SessionAggregate
	for i := 0; i < 100; i++ {
		sessions = append(sessions, model.SessionAggregate{Attempts: 10, Correct: i % 11})
	}
	var buf bytes.Buffer
	if err := RenderTrend(&buf, sessions, 1, 40); err != nil {
		t.Fatalf("render: %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if len(first) > 40 {
		t.Fatalf("expected trend line within 40 columns, got %d: %q", len(first), first)
	}
}

func TestRenderTargetTableWeakestFirst(t *testing.T) {
	aggs := []model.TargetAggregate{
		{Label: "A", Attempts: 4, Correct: 4},
		{Label: "B", Attempts: 4, Correct: 1},
		{Label: "C", Attempts: 2, Correct: 1},
	}
	var buf bytes.Buffer
	if err := RenderTargetTable(&buf, aggs); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[2], "B") || !strings.HasPrefix(lines[3], "C") || !strings.HasPrefix(lines[4], "A") {
		t.Fatalf("unexpected order: %q", buf.String())
	}
	if aggs[0].Label != "A" {
		t.Fatalf("expected input to stay unsorted")
	}
}

func TestWeakestTargets(t *testing.T) {
	aggs := []model.TargetAggregate{
		{Label: "A", Attempts: 5, Correct: 5},
		{Label: "B", Attempts: 5, Correct: 1},
		{Label: "C", Attempts: 1, Correct: 0},
		{Label: "D", Attempts: 4, Correct: 2},
	}
	got := WeakestTargets(aggs, 2, 2)
	if len(got) != 2 || got[0] != "B" || got[1] != "D" {
		t.Fatalf("unexpected weakest: %v", got)
	}
}

type fakeSource struct {
	sessions []model.SessionAggregate
	targets  []model.TargetAggregate
	gotIDs   []string
	err      error
}

func (f *fakeSource) ListSessions(context.Context, model.StatsConfig) ([]model.SessionAggregate, error) {
	return f.sessions, f.err
}

func (f *fakeSource) ListTargetAggregates(_ context.Context, ids []string) ([]model.TargetAggregate, error) {
	f.gotIDs = ids
	return f.targets, nil
}

func TestBuildAndRenderReport(t *testing.T) {
	src := &fakeSource{
		sessions: []model.SessionAggregate{{SessionID: "s1", Attempts: 3, Correct: 1}, {SessionID: "s2", Attempts: 2, Correct: 2}},
		targets:  []model.TargetAggregate{{Label: "A", Attempts: 3, Correct: 1}, {Label: "B", Attempts: 2, Correct: 2}},
	}
	report, err := BuildReport(context.Background(), src, model.StatsConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(src.gotIDs) != 2 || src.gotIDs[0] != "s1" || src.gotIDs[1] != "s2" {
		t.Fatalf("unexpected ids: %v", src.gotIDs)
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, 1, 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Summary", "Accuracy trend", "Per-Sign", "Needs practice: A, B"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	src.err = errors.New("locked")
	if _, err := BuildReport(context.Background(), src, model.StatsConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
