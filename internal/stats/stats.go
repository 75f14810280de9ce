// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/signtutor/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy returns correct/attempts in [0,1], or 0 without attempts.
func Accuracy(correct, attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	return float64(correct) / float64(attempts)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders values scaled to [lo,hi] as a single ASCII line.
func Sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}
	if math.Abs(hi-lo) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - lo) / (hi - lo)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals across sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	attempts, correct, finished := 0, 0, 0
	best := 0.0
	for _, s := range sessions {
		attempts += s.Attempts
		correct += s.Correct
		if s.EndedAt != nil {
			finished++
		}
		if s.Attempts > 0 {
			best = math.Max(best, Accuracy(s.Correct, s.Attempts))
		}
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%d ended)", len(sessions), finished),
		fmt.Sprintf("Attempts: %d", attempts),
		fmt.Sprintf("Correct: %d", correct),
		fmt.Sprintf("Accuracy: %d%%", model.AccuracyPct(correct, attempts)),
		fmt.Sprintf("Best session: %.0f%%", best*100),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints the per-session accuracy as a sparkline no wider than width.
func RenderTrend(w io.Writer, sessions []model.SessionAggregate, window, width int) error {
	var accs []float64
	for _, s := range sessions {
		if s.Attempts == 0 {
			continue
		}
		accs = append(accs, Accuracy(s.Correct, s.Attempts)*100)
	}
	if len(accs) == 0 {
		return nil
	}
	accs = MovingAverage(accs, window)
	const label = "Accuracy trend "
	if width > 0 {
		avail := width - len(label) - 2
		if avail < 1 {
			avail = 1
		}
		if len(accs) > avail {
			accs = accs[len(accs)-avail:]
		}
	}
	if _, err := fmt.Fprintf(w, "%s[%s]\n", label, Sparkline(accs, 0, 100)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Latest: %.0f%%\n\n", accs[len(accs)-1])
	return err
}

// RenderTargetTable prints per-target aggregates, weakest first.
func RenderTargetTable(w io.Writer, aggs []model.TargetAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	rows := SortedWeakest(aggs)

	if _, err := fmt.Fprintln(w, "Per-Sign"); err != nil {
		return err
	}
	cols := []column{
		{header: "Sign", max: 20},
		{header: "Accuracy", right: true},
		{header: ""},
		{header: "Attempts", right: true},
		{header: "Correct", right: true},
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		pct := model.AccuracyPct(r.Correct, r.Attempts)
		tableRows = append(tableRows, []string{
			r.Label,
			fmt.Sprintf("%d%%", pct),
			accuracyBar(pct),
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%d", r.Correct),
		})
	}
	for _, line := range renderTable(cols, tableRows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func sortWeakest(aggs []model.TargetAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		ai := Accuracy(aggs[i].Correct, aggs[i].Attempts)
		aj := Accuracy(aggs[j].Correct, aggs[j].Attempts)
		if ai == aj {
			return aggs[i].Label < aggs[j].Label
		}
		return ai < aj
	})
}
