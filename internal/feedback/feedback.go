// Package feedback turns classification results into displayed verdicts.
//
// The controller moves Idle → Displaying on the first judgeable result and
// ignores everything else until the display window expires. A verdict is final
// from a single detection; nothing is aggregated across ticks.
package feedback

import (
	"sync"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

// DefaultDisplay is how long a verdict stays on screen.
const DefaultDisplay = 2000 * time.Millisecond

// Phase is the controller state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingVerdict
	PhaseDisplaying
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingVerdict:
		return "awaiting_verdict"
	case PhaseDisplaying:
		return "displaying"
	default:
		return "unknown"
	}
}

// State is a snapshot of the controller.
type State struct {
	Phase        Phase
	LastVerdict  model.Verdict
	HasVerdict   bool
	DisplayUntil time.Time
}

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Expiry is handed to the expire hook when a display window ends.
type Expiry struct {
	Verdict model.Verdict
	Epoch   uint64
}

// Options tunes a Controller.
type Options struct {
	Display   time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
	// OnExpire runs outside the controller lock when a display window ends.
	// The controller stays in Displaying until the hook calls Finish, so the
	// hook can settle the verdict under its own lock. Without a hook the
	// controller finishes by itself.
	OnExpire func(Expiry)
}

// Controller owns the feedback state machine.
type Controller struct {
	display   time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	onExpire  func(Expiry)

	mu    sync.Mutex
	state State
	timer Timer
	epoch uint64
}

// New returns an idle controller.
func New(opts Options) *Controller {
	if opts.Display <= 0 {
		opts.Display = DefaultDisplay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		display:   opts.Display,
		afterFunc: opts.AfterFunc,
		now:       opts.Now,
		onExpire:  opts.OnExpire,
	}
}

// Handle offers a result for the given target. It returns the verdict and
// true when the result settled a verdict; the caller records it exactly once.
func (c *Controller) Handle(targetLabel string, result model.ClassificationResult) (model.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == PhaseDisplaying {
		return model.Verdict{}, false
	}
	if !result.HandsDetected || result.FeedbackMessage == "" {
		return model.Verdict{}, false
	}

	now := c.now()
	verdict := model.Verdict{
		TargetLabel: targetLabel,
		IsCorrect:   result.IsCorrect,
		Message:     result.FeedbackMessage,
		Prediction:  result.PredictedLabel,
		Confidence:  result.Confidence,
		SettledAt:   now,
	}
	c.state = State{
		Phase:        PhaseDisplaying,
		LastVerdict:  verdict,
		HasVerdict:   true,
		DisplayUntil: now.Add(c.display),
	}
	c.epoch++
	epoch := c.epoch
	c.timer = c.afterFunc(c.display, func() { c.expire(epoch) })
	return verdict, true
}

// Await marks that the learner explicitly asked for a verdict. It only
// applies from Idle.
func (c *Controller) Await() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseIdle {
		return false
	}
	c.state.Phase = PhaseAwaitingVerdict
	return true
}

// Reset cancels any display window and returns to Idle. Pending expiries
// become stale.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.epoch++
	c.state.Phase = PhaseIdle
	c.state.DisplayUntil = time.Time{}
}

// Finish ends the display window an expiry belongs to and returns to Idle.
// It reports false when the window was already reset or replaced.
func (c *Controller) Finish(e Expiry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Epoch != c.epoch || c.state.Phase != PhaseDisplaying {
		return false
	}
	c.timer = nil
	c.state.Phase = PhaseIdle
	c.state.DisplayUntil = time.Time{}
	return true
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) expire(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state.Phase != PhaseDisplaying {
		c.mu.Unlock()
		return
	}
	e := Expiry{Verdict: c.state.LastVerdict, Epoch: epoch}
	c.mu.Unlock()

	if c.onExpire == nil {
		c.Finish(e)
		return
	}
	c.onExpire(e)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
