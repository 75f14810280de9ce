package stats

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/signtutor/internal/model"
)

const terminalWidthBackup = 80

// Source is the query side of the session store.
type Source interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
	ListTargetAggregates(ctx context.Context, sessionIDs []string) ([]model.TargetAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions []model.SessionAggregate
	Targets  []model.TargetAggregate
}

// BuildReport loads sessions and their per-target aggregates.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	sessions, err := src.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	targets, err := src.ListTargetAggregates(ctx, ids)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate targets: %w", err)
	}
	return Report{Sessions: sessions, Targets: targets}, nil
}

// Render writes the full report. A zero width uses the terminal width.
func (r Report) Render(w io.Writer, window, width int) error {
	if width <= 0 {
		width = terminalWidth()
	}
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderTrend(w, r.Sessions, window, width); err != nil {
		return err
	}
	if err := RenderTargetTable(w, r.Targets); err != nil {
		return err
	}
	if weak := WeakestTargets(r.Targets, 5, 2); len(weak) > 0 {
		if _, err := fmt.Fprintf(w, "Needs practice: %s\n", strings.Join(weak, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
