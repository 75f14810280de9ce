// Package session composes capture, detection, feedback and progression into
// one practice session and exposes it through commands and events.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/signtutor/internal/feedback"
	"github.com/verte-zerg/signtutor/internal/model"
	"github.com/verte-zerg/signtutor/internal/progression"
	"github.com/verte-zerg/signtutor/internal/scheduler"
)

const (
	defaultEventBuffer    = 256
	defaultPersistTimeout = 5 * time.Second
)

// SessionService hands out session ids and stores attempts.
type SessionService interface {
	StartSession(ctx context.Context, moduleID string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
	RecordAttempt(ctx context.Context, rec model.AttemptRecord) error
}

// Catalog lists the targets of a module in practice order.
type Catalog interface {
	GetTargets(ctx context.Context, moduleID string) ([]model.Target, error)
}

// Options tunes a Coordinator.
type Options struct {
	Interval       time.Duration
	Display        time.Duration
	EventBuffer    int
	PersistTimeout time.Duration
	Logger         *slog.Logger
	// AfterFunc replaces the display timer; tests use it to control expiry.
	AfterFunc feedback.AfterFunc
}

// Coordinator owns one session from Start to EndSession.
type Coordinator struct {
	service  SessionService
	catalog  Catalog
	source   scheduler.FrameSource
	detector scheduler.Detector
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	state    model.SessionState
	started  bool
	closed   bool
	progress *progression.Controller
	feedback *feedback.Controller
	sched    *scheduler.Scheduler
	events   chan model.Event
	done     chan struct{}

	persist sync.WaitGroup
}

// NewCoordinator wires the collaborators. Nothing runs until Start.
func NewCoordinator(service SessionService, catalog Catalog, source scheduler.FrameSource, detector scheduler.Detector, opts Options) *Coordinator {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		service:  service,
		catalog:  catalog,
		source:   source,
		detector: detector,
		opts:     opts,
		logger:   opts.Logger,
		events:   make(chan model.Event, opts.EventBuffer),
		done:     make(chan struct{}),
	}
}

// Events delivers presentation events. The channel closes after SessionEnded.
func (c *Coordinator) Events() <-chan model.Event {
	return c.events
}

// Done closes when the session has ended.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Start loads the module's targets and obtains a session id. Detection can
// only run after Start succeeds. Cancelling ctx ends the session.
func (c *Coordinator) Start(ctx context.Context, moduleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrSessionActive
	}

	targets, err := c.catalog.GetTargets(ctx, moduleID)
	if err != nil {
		return &SessionStartError{ModuleID: moduleID, Err: fmt.Errorf("failed to load targets: %w", err)}
	}
	progress, err := progression.New(targets)
	if err != nil {
		return &SessionStartError{ModuleID: moduleID, Err: err}
	}
	sessionID, err := c.service.StartSession(ctx, moduleID)
	if err != nil {
		return &SessionStartError{ModuleID: moduleID, Err: err}
	}
	if sessionID == "" {
		return &SessionStartError{ModuleID: moduleID, Err: errors.New("empty session id")}
	}

	c.logger = c.opts.Logger.With("session_id", sessionID, "module", moduleID)
	c.progress = progress
	c.feedback = feedback.New(feedback.Options{
		Display:   c.opts.Display,
		AfterFunc: c.opts.AfterFunc,
		OnExpire:  c.onExpire,
	})
	c.sched = scheduler.New(c.source, c.detector, c.onDelivery, scheduler.Options{
		Interval: c.opts.Interval,
		Logger:   c.logger,
	})
	current := progress.Current()
	c.sched.SetTarget(current.Label)
	c.state = model.SessionState{
		SessionID: sessionID,
		ModuleID:  moduleID,
		Status:    model.StatusActive,
	}
	c.started = true

	c.logger.Info("session started", "targets", progress.Len())
	c.emitTargetLocked(current)
	c.emitStatsLocked()

	go func() {
		select {
		case <-ctx.Done():
			if err := c.EndSession(context.WithoutCancel(ctx)); err != nil {
				c.logger.Warn("failed to end session on cancel", "err", err)
			}
		case <-c.done:
		}
	}()
	return nil
}

// StartCamera acquires the capture device and starts detection.
func (c *Coordinator) StartCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return ErrNoActiveSession
	}
	if c.sched.Running() {
		return nil
	}
	if err := c.sched.Start(ctx); err != nil {
		c.logger.Warn("camera unavailable", "err", err)
		c.emitLocked(model.Event{Kind: model.EventError, Err: err})
		return err
	}
	c.emitLocked(model.Event{Kind: model.EventCameraStateChanged, CameraOn: true})
	return nil
}

// StopCamera stops detection and releases the device. A verdict on screen
// finishes its display window.
func (c *Coordinator) StopCamera() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return c.releaseSource()
	}
	wasRunning := c.sched.Running()
	c.sched.Stop()
	if wasRunning && !c.closed {
		c.emitLocked(model.Event{Kind: model.EventCameraStateChanged, CameraOn: false})
	}
	return nil
}

// CheckNow requests one immediate detection. It returns false when a
// request is already in flight.
func (c *Coordinator) CheckNow() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return false, ErrNoActiveSession
	}
	if !c.sched.Running() {
		return false, ErrCameraOff
	}
	if !c.sched.CheckNow() {
		return false, nil
	}
	c.feedback.Await()
	return true, nil
}

// SkipTarget moves to the next target without recording an attempt.
func (c *Coordinator) SkipTarget(ctx context.Context) error {
	c.mu.Lock()
	if !c.activeLocked() {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	c.logger.Info("target skipped", "target", c.progress.Current().Label)
	complete := c.advanceLocked(c.progress.Skip)
	c.mu.Unlock()

	if complete {
		return c.EndSession(ctx)
	}
	return nil
}

// EndSession stops detection, releases the device and notifies the session
// service. It is safe to call in any state and more than once.
func (c *Coordinator) EndSession(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return c.releaseSource()
	}
	if c.state.Status != model.StatusActive {
		c.mu.Unlock()
		return c.releaseSource()
	}
	c.state.Status = model.StatusEnding
	c.sched.Stop()
	c.feedback.Reset()
	sessionID := c.state.SessionID
	completed := c.progress.Complete()
	c.mu.Unlock()

	c.waitPersist(c.opts.PersistTimeout)

	endCtx, cancel := context.WithTimeout(ctx, c.opts.PersistTimeout)
	defer cancel()
	if err := c.service.EndSession(endCtx, sessionID); err != nil {
		c.logger.Warn("failed to end session", "err", err)
	}

	c.mu.Lock()
	c.state.Status = model.StatusEnded
	c.logger.Info("session ended", "attempts", c.state.Attempts, "correct", c.state.Correct, "completed", completed)
	c.emitLocked(model.Event{
		Kind:      model.EventSessionEnded,
		Attempts:  c.state.Attempts,
		Correct:   c.state.Correct,
		Completed: completed,
	})
	c.closed = true
	close(c.events)
	close(c.done)
	c.mu.Unlock()
	return nil
}

// State returns a snapshot of the session.
func (c *Coordinator) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FeedbackState returns a snapshot of the verdict state machine.
func (c *Coordinator) FeedbackState() feedback.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feedback == nil {
		return feedback.State{}
	}
	return c.feedback.State()
}

// SchedulerStats returns detection counters, zero before Start.
func (c *Coordinator) SchedulerStats() scheduler.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		return scheduler.Stats{}
	}
	return c.sched.Stats()
}

func (c *Coordinator) onDelivery(d scheduler.Delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || !c.sched.IsCurrent(d.Generation) {
		c.logger.Debug(scheduler.ErrStaleResult.Error(), "target", d.TargetLabel)
		return
	}
	c.emitLocked(model.Event{Kind: model.EventDetectionUpdated, Detection: d.Result})

	verdict, settled := c.feedback.Handle(d.TargetLabel, d.Result)
	if !settled {
		return
	}
	c.state.Attempts++
	if verdict.IsCorrect {
		c.state.Correct++
	}
	c.logger.Info("verdict", "target", verdict.TargetLabel, "correct", verdict.IsCorrect,
		"prediction", verdict.Prediction, "confidence", verdict.Confidence)
	c.emitLocked(model.Event{Kind: model.EventVerdictDisplayed, Verdict: verdict})
	c.emitStatsLocked()
	c.recordAttempt(model.AttemptRecord{
		SessionID:   c.state.SessionID,
		ModuleID:    c.state.ModuleID,
		TargetLabel: verdict.TargetLabel,
		IsCorrect:   verdict.IsCorrect,
		RecordedAt:  verdict.SettledAt,
	})
}

func (c *Coordinator) onExpire(e feedback.Expiry) {
	c.mu.Lock()
	if !c.activeLocked() || !c.feedback.Finish(e) {
		c.mu.Unlock()
		return
	}
	c.emitLocked(model.Event{Kind: model.EventVerdictCleared, Verdict: e.Verdict})
	if !e.Verdict.IsCorrect {
		c.mu.Unlock()
		return
	}
	complete := c.advanceLocked(c.progress.Advance)
	c.mu.Unlock()

	if complete {
		if err := c.EndSession(context.Background()); err != nil {
			c.logger.Warn("failed to end completed session", "err", err)
		}
	}
}

// advanceLocked moves to the next target with step and reports whether the
// module is done.
func (c *Coordinator) advanceLocked(step func() (model.Target, error)) bool {
	next, err := step()
	if errors.Is(err, progression.ErrSessionComplete) {
		c.logger.Info("module completed")
		return true
	}
	c.state.TargetIndex = c.progress.Index()
	c.logger.Debug("target changed", "target", next.Label, "remaining", c.progress.Remaining())
	c.feedback.Reset()
	c.sched.SetTarget(next.Label)
	c.emitTargetLocked(next)
	return false
}

func (c *Coordinator) recordAttempt(rec model.AttemptRecord) {
	c.persist.Add(1)
	go func() {
		defer c.persist.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.PersistTimeout)
		defer cancel()
		if err := c.service.RecordAttempt(ctx, rec); err != nil {
			c.logger.Warn("failed to record attempt", "target", rec.TargetLabel, "err", err)
		}
	}()
}

func (c *Coordinator) waitPersist(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		c.persist.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warn("attempt records still pending at session end")
	}
}

func (c *Coordinator) releaseSource() error {
	if c.source == nil {
		return nil
	}
	if err := c.source.Stop(); err != nil {
		c.logger.Warn("failed to release frame source", "err", err)
	}
	return nil
}

func (c *Coordinator) activeLocked() bool {
	return c.started && c.state.Status == model.StatusActive
}

func (c *Coordinator) emitTargetLocked(target model.Target) {
	c.emitLocked(model.Event{
		Kind:        model.EventTargetChanged,
		Target:      target,
		TargetIndex: c.progress.Index(),
		TargetCount: c.progress.Len(),
	})
}

func (c *Coordinator) emitStatsLocked() {
	c.emitLocked(model.Event{
		Kind:     model.EventStatsUpdated,
		Attempts: c.state.Attempts,
		Correct:  c.state.Correct,
	})
}

func (c *Coordinator) emitLocked(ev model.Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped, consumer too slow", "kind", ev.Kind.String())
	}
}
