// Package scheduler drives periodic capture and detection with at most one
// request in flight.
//
// A tick that fires while a request is outstanding is dropped, not queued:
// under a slow service the effective cadence degrades instead of building a
// backlog. Stop never waits for the outstanding request; its result is
// discarded when it resolves because the generation it was issued under is no
// longer current.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

// DefaultInterval is the reference detection cadence.
const DefaultInterval = 500 * time.Millisecond

// ErrStaleResult marks a response that resolved after its context was left.
// It is logged, never surfaced.
var ErrStaleResult = errors.New("stale detection result discarded")

// FrameSource produces samples while started.
type FrameSource interface {
	Start(ctx context.Context) error
	Capture(ctx context.Context) (model.Sample, error)
	Stop() error
}

// Detector classifies a sample against a target label.
type Detector interface {
	Detect(ctx context.Context, sample model.Sample, targetLabel string) (model.ClassificationResult, error)
}

// Delivery is a result handed to the sink together with the generation it
// was issued under.
type Delivery struct {
	Generation  uint64
	TargetLabel string
	Result      model.ClassificationResult
}

// Sink receives successful detection results.
type Sink func(Delivery)

// Options tunes a Scheduler.
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Stats counts scheduler activity since construction.
type Stats struct {
	Issued    uint64
	Skipped   uint64
	Failed    uint64
	Stale     uint64
	Delivered uint64
}

// Scheduler runs detection ticks against the current target.
type Scheduler struct {
	source   FrameSource
	detector Detector
	sink     Sink
	interval time.Duration
	logger   *slog.Logger

	inFlight   atomic.Bool
	generation atomic.Uint64

	mu         sync.Mutex
	running    bool
	label      string
	baseCtx    context.Context
	stopTicker chan struct{}
	tickerDone chan struct{}

	wg sync.WaitGroup

	issued    atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
	stale     atomic.Uint64
	delivered atomic.Uint64
}

// New builds a stopped scheduler.
func New(source FrameSource, detector Detector, sink Sink, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		source:   source,
		detector: detector,
		sink:     sink,
		interval: opts.Interval,
		logger:   opts.Logger,
	}
}

// Start acquires the frame source and begins ticking. The scheduler stays
// stopped if the source cannot be started. ctx bounds the lifetime of
// issued requests, not the ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := s.source.Start(ctx); err != nil {
		if serr := s.source.Stop(); serr != nil {
			s.logger.Warn("failed to release frame source", "err", serr)
		}
		return fmt.Errorf("failed to start frame source: %w", err)
	}
	s.running = true
	s.baseCtx = ctx
	s.generation.Add(1)
	s.stopTicker = make(chan struct{})
	s.tickerDone = make(chan struct{})
	go s.loop(s.stopTicker, s.tickerDone)
	s.logger.Info("detection started", "interval", s.interval)
	return nil
}

// Stop halts future ticks and releases the frame source. It does not wait
// for an outstanding request. Safe to call in any state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	var stop, done chan struct{}
	if wasRunning {
		s.running = false
		s.generation.Add(1)
		stop, done = s.stopTicker, s.tickerDone
		s.stopTicker, s.tickerDone = nil, nil
	}
	s.mu.Unlock()

	if wasRunning {
		close(stop)
		<-done
	}
	if err := s.source.Stop(); err != nil {
		s.logger.Warn("failed to release frame source", "err", err)
	}
	if wasRunning {
		s.logger.Info("detection stopped")
	}
}

// SetTarget switches the label sent with future requests. Results of
// requests issued for the previous target become stale.
func (s *Scheduler) SetTarget(label string) {
	s.mu.Lock()
	s.label = label
	s.generation.Add(1)
	s.mu.Unlock()
}

// CheckNow performs one out-of-band tick. It returns false when the
// scheduler is stopped or a request is already in flight.
func (s *Scheduler) CheckNow() bool {
	return s.tick("manual")
}

// Running reports whether ticks are being issued.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// InFlight reports whether a request is outstanding.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

// IsCurrent reports whether a delivery's generation is still current.
func (s *Scheduler) IsCurrent(generation uint64) bool {
	return s.generation.Load() == generation
}

// Wait blocks until every issued tick has resolved.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Issued:    s.issued.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
		Stale:     s.stale.Load(),
		Delivered: s.delivered.Load(),
	}
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick("timer")
		}
	}
}

func (s *Scheduler) tick(origin string) bool {
	s.mu.Lock()
	if !s.running || s.label == "" {
		s.mu.Unlock()
		return false
	}
	label := s.label
	ctx := s.baseCtx
	gen := s.generation.Load()
	s.mu.Unlock()

	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Debug("tick skipped, request in flight", "origin", origin)
		return false
	}
	s.issued.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.run(ctx, gen, label)
	}()
	return true
}

func (s *Scheduler) run(ctx context.Context, gen uint64, label string) {
	sample, err := s.source.Capture(ctx)
	if err != nil {
		s.fail(gen, "capture failed", label, err)
		return
	}
	result, err := s.detector.Detect(ctx, sample, label)
	if err != nil {
		s.fail(gen, "detection failed", label, err)
		return
	}
	if !s.IsCurrent(gen) {
		s.stale.Add(1)
		s.logger.Debug(ErrStaleResult.Error(), "target", label, "trace_id", sample.TraceID)
		return
	}
	s.delivered.Add(1)
	s.sink(Delivery{Generation: gen, TargetLabel: label, Result: result})
}

func (s *Scheduler) fail(gen uint64, msg, label string, err error) {
	if !s.IsCurrent(gen) {
		s.stale.Add(1)
		s.logger.Debug(ErrStaleResult.Error(), "target", label, "err", err)
		return
	}
	s.failed.Add(1)
	s.logger.Warn(msg, "target", label, "err", err)
}
