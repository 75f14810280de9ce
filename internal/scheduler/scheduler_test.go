package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

type fakeSource struct {
	startErr error

	mu       sync.Mutex
	active   bool
	starts   int
	releases int
}

func (f *fakeSource) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.active = true
	return nil
}

func (f *fakeSource) Capture(context.Context) (model.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return model.Sample{}, errors.New("not active")
	}
	return model.Sample{Data: []byte{1}}, nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.releases++
	return nil
}

func (f *fakeSource) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// gatedDetector blocks every call until release is closed or a value is sent.
type gatedDetector struct {
	release chan struct{}
	result  model.ClassificationResult
	errs    []error

	calls    atomic.Int32
	current  atomic.Int32
	maxSeen  atomic.Int32
	labelsMu sync.Mutex
	labels   []string
}

func newGatedDetector() *gatedDetector {
	return &gatedDetector{release: make(chan struct{})}
}

func (d *gatedDetector) Detect(_ context.Context, _ model.Sample, label string) (model.ClassificationResult, error) {
	n := d.calls.Add(1)
	cur := d.current.Add(1)
	defer d.current.Add(-1)
	for {
		prev := d.maxSeen.Load()
		if cur <= prev || d.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	d.labelsMu.Lock()
	d.labels = append(d.labels, label)
	d.labelsMu.Unlock()
	<-d.release
	if int(n) <= len(d.errs) && d.errs[n-1] != nil {
		return model.ClassificationResult{}, d.errs[n-1]
	}
	return d.result, nil
}

type recordingSink struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (r *recordingSink) sink(d Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestTimerTicksSkippedWhileInFlight(t *testing.T) {
	src := &fakeSource{}
	det := newGatedDetector()
	rec := &recordingSink{}
	s := New(src, det, rec.sink, Options{Interval: 5 * time.Millisecond, Logger: quietLogger()})
	s.SetTarget("A")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, func() bool { return s.Stats().Skipped >= 3 })
	if got := det.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 request while blocked, got %d", got)
	}
	if !s.InFlight() {
		t.Fatalf("expected request in flight")
	}

	close(det.release)
	waitFor(t, func() bool { return det.calls.Load() >= 3 })
	s.Stop()
	s.Wait()

	if got := det.maxSeen.Load(); got != 1 {
		t.Fatalf("expected at most 1 concurrent request, saw %d", got)
	}
	if rec.count() == 0 {
		t.Fatalf("expected deliveries after release")
	}
}

func TestCheckNowIsNoOpWhileInFlight(t *testing.T) {
	src := &fakeSource{}
	det := newGatedDetector()
	rec := &recordingSink{}
	s := New(src, det, rec.sink, Options{Interval: time.Hour, Logger: quietLogger()})
	s.SetTarget("A")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if !s.CheckNow() {
		t.Fatalf("expected first manual check to be issued")
	}
	if s.CheckNow() {
		t.Fatalf("expected second manual check to be a no-op")
	}
	close(det.release)
	s.Wait()

	stats := s.Stats()
	if stats.Issued != 1 || stats.Skipped != 1 || stats.Delivered != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one delivery, got %d", rec.count())
	}
}

func TestLateResponseAfterStopIsDiscarded(t *testing.T) {
	src := &fakeSource{}
	det := newGatedDetector()
	det.result = model.ClassificationResult{HandsDetected: true, IsCorrect: true, FeedbackMessage: "ok"}
	rec := &recordingSink{}
	s := New(src, det, rec.sink, Options{Interval: time.Hour, Logger: quietLogger()})
	s.SetTarget("A")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.CheckNow() {
		t.Fatalf("expected check to be issued")
	}
	waitFor(t, func() bool { return det.calls.Load() == 1 })

	s.Stop()
	if src.isActive() {
		t.Fatalf("expected frame source released on stop")
	}
	close(det.release)
	s.Wait()

	if rec.count() != 0 {
		t.Fatalf("expected late response to be discarded")
	}
	if stats := s.Stats(); stats.Stale != 1 || stats.Delivered != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSetTargetInvalidatesInFlight(t *testing.T) {
	src := &fakeSource{}
	det := newGatedDetector()
	rec := &recordingSink{}
	s := New(src, det, rec.sink, Options{Interval: time.Hour, Logger: quietLogger()})
	s.SetTarget("A")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	s.CheckNow()
	waitFor(t, func() bool { return det.calls.Load() == 1 })
	s.SetTarget("B")
	close(det.release)
	s.Wait()
	if rec.count() != 0 {
		t.Fatalf("expected result for previous target to be dropped")
	}

	s.CheckNow()
	s.Wait()
	if rec.count() != 1 {
		t.Fatalf("expected delivery for new target")
	}
	if got := rec.deliveries[0].TargetLabel; got != "B" {
		t.Fatalf("expected label B, got %q", got)
	}
	if !s.IsCurrent(rec.deliveries[0].Generation) {
		t.Fatalf("expected delivery generation to be current")
	}
}

func TestFailedTickDoesNotStopScheduler(t *testing.T) {
	src := &fakeSource{}
	det := newGatedDetector()
	det.errs = []error{errors.New("network down")}
	close(det.release)
	rec := &recordingSink{}
	s := New(src, det, rec.sink, Options{Interval: time.Hour, Logger: quietLogger()})
	s.SetTarget("A")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	s.CheckNow()
	s.Wait()
	if !s.Running() {
		t.Fatalf("expected scheduler to keep running after failure")
	}
	s.CheckNow()
	s.Wait()

	stats := s.Stats()
	if stats.Failed != 1 || stats.Delivered != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStartFailureKeepsSchedulerStopped(t *testing.T) {
	deviceErr := errors.New("permission denied")
	src := &fakeSource{startErr: deviceErr}
	det := newGatedDetector()
	s := New(src, det, func(Delivery) {}, Options{Interval: time.Millisecond, Logger: quietLogger()})
	s.SetTarget("A")

	err := s.Start(context.Background())
	if !errors.Is(err, deviceErr) {
		t.Fatalf("expected device error, got %v", err)
	}
	if s.Running() {
		t.Fatalf("expected scheduler to stay stopped")
	}
	if s.CheckNow() {
		t.Fatalf("expected no tick while stopped")
	}
	if src.releases != 1 {
		t.Fatalf("expected source release after failed start, got %d", src.releases)
	}
}

func TestStopIsIdempotentAndAlwaysReleases(t *testing.T) {
	src := &fakeSource{}
	s := New(src, newGatedDetector(), func(Delivery) {}, Options{Logger: quietLogger()})

	s.Stop()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
	if src.isActive() {
		t.Fatalf("expected source inactive")
	}
	if src.releases != 3 {
		t.Fatalf("expected 3 releases, got %d", src.releases)
	}
}

func TestNoTickWithoutTarget(t *testing.T) {
	src := &fakeSource{}
	det := newGatedDetector()
	s := New(src, det, func(Delivery) {}, Options{Interval: time.Hour, Logger: quietLogger()})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if s.CheckNow() {
		t.Fatalf("expected no tick without a target")
	}
}
