// Package simulate produces randomized detection results for offline demos.
package simulate

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/verte-zerg/signtutor/internal/model"
)

var correctMessages = []string{
	"Great job! That's correct!",
	"Perfect sign!",
	"Nailed it!",
}

var incorrectMessages = []string{
	"Not quite. Check your finger placement.",
	"Close! Try adjusting your thumb.",
	"Try again, hold the sign steady.",
}

// Options tunes the simulated service. Percentages are in [0,1].
type Options struct {
	HandsPct   float64
	CorrectPct float64
	Latency    time.Duration
	// Labels are used as wrong predictions.
	Labels []string
	Seed   int64
}

// Detector fakes the recognition service.
type Detector struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	opts Options
}

// New returns a Detector. A zero seed uses the current time.
func New(opts Options) *Detector {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Detector{rnd: rand.New(rand.NewSource(seed)), opts: opts}
}

// Detect waits for the configured latency and returns a random result for
// targetLabel. It honors ctx cancellation.
func (d *Detector) Detect(ctx context.Context, _ model.Sample, targetLabel string) (model.ClassificationResult, error) {
	if d.opts.Latency > 0 {
		timer := time.NewTimer(d.jitter(d.opts.Latency))
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.ClassificationResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !chance(d.rnd, d.opts.HandsPct) {
		return model.ClassificationResult{}, nil
	}
	result := model.ClassificationResult{
		HandsDetected: true,
		NumHands:      1,
		Landmarks:     [][]model.Landmark{d.hand()},
	}
	if chance(d.rnd, d.opts.CorrectPct) {
		result.IsCorrect = true
		result.PredictedLabel = targetLabel
		result.Confidence = 0.75 + d.rnd.Float64()*0.25
		result.FeedbackMessage = pick(d.rnd, correctMessages)
		return result, nil
	}
	result.PredictedLabel = d.wrongLabel(targetLabel)
	result.Confidence = 0.3 + d.rnd.Float64()*0.4
	result.FeedbackMessage = pick(d.rnd, incorrectMessages)
	return result, nil
}

func (d *Detector) jitter(base time.Duration) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	// +/-25% around base.
	delta := time.Duration(d.rnd.Int63n(int64(base)/2+1)) - base/4
	return base + delta
}

func (d *Detector) wrongLabel(target string) string {
	var candidates []string
	for _, l := range d.opts.Labels {
		if l != target {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return "?"
	}
	return candidates[d.rnd.Intn(len(candidates))]
}

// hand returns 21 points roughly shaped like an open palm.
func (d *Detector) hand() []model.Landmark {
	cx := 0.4 + d.rnd.Float64()*0.2
	cy := 0.55 + d.rnd.Float64()*0.1
	points := make([]model.Landmark, 0, 21)
	points = append(points, model.Landmark{X: cx, Y: cy + 0.2})
	for finger := 0; finger < 5; finger++ {
		dx := (float64(finger) - 2) * 0.06
		for joint := 1; joint <= 4; joint++ {
			points = append(points, model.Landmark{
				X: cx + dx*float64(joint)/2,
				Y: cy + 0.12 - float64(joint)*0.07,
				Z: -0.01 * float64(joint),
			})
		}
	}
	return points
}

func chance(rnd *rand.Rand, pct float64) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 1 {
		return true
	}
	return rnd.Float64() < pct
}

func pick(rnd *rand.Rand, values []string) string {
	return values[rnd.Intn(len(values))]
}
