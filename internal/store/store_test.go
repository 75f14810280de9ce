package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "signtutor.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.StartSession(ctx, "alphabets")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatalf("expected session id")
	}
	for _, correct := range []bool{false, true, true} {
		rec := model.AttemptRecord{SessionID: id, ModuleID: "alphabets", TargetLabel: "A", IsCorrect: correct}
		if err := s.RecordAttempt(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := s.RecordAttempt(ctx, model.AttemptRecord{SessionID: id, ModuleID: "alphabets", TargetLabel: "B"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.EndSession(ctx, id); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := s.EndSession(ctx, id); err != nil {
		t.Fatalf("second end: %v", err)
	}

	sessions, err := s.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.SessionID != id || got.ModuleID != "alphabets" || got.Attempts != 4 || got.Correct != 2 || got.EndedAt == nil {
		t.Fatalf("unexpected aggregate: %+v", got)
	}

	aggs, err := s.ListTargetAggregates(ctx, []string{id})
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	want := []model.TargetAggregate{{Label: "A", Attempts: 3, Correct: 2}, {Label: "B", Attempts: 1, Correct: 0}}
	if len(aggs) != len(want) {
		t.Fatalf("unexpected aggregates: %+v", aggs)
	}
	for i := range want {
		if aggs[i] != want[i] {
			t.Fatalf("aggregate %d: got %+v want %+v", i, aggs[i], want[i])
		}
	}
}

func TestUnknownSessionWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.EndSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	err := s.RecordAttempt(ctx, model.AttemptRecord{SessionID: "missing", TargetLabel: "A"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	aggs, err := s.ListTargetAggregates(ctx, []string{"missing"})
	if err != nil || len(aggs) != 0 {
		t.Fatalf("expected rolled back attempt, got %+v %v", aggs, err)
	}
}

func TestListSessionsFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Hour)
	}

	var ids []string
	for _, module := range []string{"alphabets", "numbers", "alphabets", "alphabets"} {
		id, err := s.StartSession(ctx, module)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		ids = append(ids, id)
	}
	if err := s.InsertSession(ctx, ids[0], "numbers"); err != nil {
		t.Fatalf("reinsert: %v", err)
	}

	tests := []struct {
		name string
		cfg  model.StatsConfig
		want []string
	}{
		{name: "all", cfg: model.StatsConfig{}, want: ids},
		{name: "module", cfg: model.StatsConfig{Module: "numbers"}, want: []string{ids[1]}},
		{name: "last", cfg: model.StatsConfig{Module: "alphabets", Last: 2}, want: []string{ids[2], ids[3]}},
		{name: "since", cfg: model.StatsConfig{Since: ptrTime(base.Add(3 * time.Hour))}, want: []string{ids[2], ids[3]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := s.ListSessions(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(sessions) != len(tt.want) {
				t.Fatalf("got %d sessions, want %d", len(sessions), len(tt.want))
			}
			for i, id := range tt.want {
				if sessions[i].SessionID != id {
					t.Fatalf("session %d: got %s want %s", i, sessions[i].SessionID, id)
				}
			}
		})
	}
}

func TestTargetsRoundTripInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.GetTargets(ctx, "words"); !errors.Is(err, ErrNoCachedTargets) {
		t.Fatalf("expected ErrNoCachedTargets, got %v", err)
	}
	first := []model.Target{{Label: "hello", Hint: "wave"}, {Label: "thanks", Hint: "chin"}}
	if err := s.SaveTargets(ctx, "words", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := []model.Target{{Label: "yes"}, {Label: "no", DisplayAsset: "no.png"}, {Label: "please"}}
	if err := s.SaveTargets(ctx, "words", second); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetTargets(ctx, "words")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 || got[0].Label != "yes" || got[1].DisplayAsset != "no.png" || got[2].ID != "words/please" {
		t.Fatalf("unexpected targets: %+v", got)
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
