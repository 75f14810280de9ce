// Package progression walks a fixed, ordered list of targets.
package progression

import (
	"errors"
	"sync"

	"github.com/verte-zerg/signtutor/internal/model"
)

// ErrSessionComplete is returned when advancing past the last target.
var ErrSessionComplete = errors.New("session complete")

// ErrNoTargets is returned when a module has nothing to practice.
var ErrNoTargets = errors.New("module has no targets")

// Controller tracks the current target. Traversal is linear and never wraps.
type Controller struct {
	mu       sync.Mutex
	targets  []model.Target
	index    int
	complete bool
}

// New copies targets; the list is not mutated afterwards.
func New(targets []model.Target) (*Controller, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	list := make([]model.Target, len(targets))
	copy(list, targets)
	return &Controller{targets: list}, nil
}

// Current returns the active target.
func (c *Controller) Current() model.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targets[c.index]
}

// Index returns the active position.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Len returns the number of targets.
func (c *Controller) Len() int {
	return len(c.targets)
}

// Remaining returns how many targets follow the current one.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.targets) - c.index - 1
}

// Complete reports whether the list was exhausted.
func (c *Controller) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}

// Advance moves to the next target. On the last target it returns
// ErrSessionComplete and the index stays in range.
func (c *Controller) Advance() (model.Target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= len(c.targets)-1 {
		c.complete = true
		return model.Target{}, ErrSessionComplete
	}
	c.index++
	return c.targets[c.index], nil
}

// Skip moves on without a correct attempt. It behaves like Advance.
func (c *Controller) Skip() (model.Target, error) {
	return c.Advance()
}

