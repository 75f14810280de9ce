package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/verte-zerg/signtutor/internal/model"
)

// RemoteService is the session API the mirror forwards to.
type RemoteService interface {
	StartSession(ctx context.Context, moduleID string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
	RecordAttempt(ctx context.Context, rec model.AttemptRecord) error
}

// LocalLog keeps a local copy of remote sessions for offline stats.
type LocalLog interface {
	InsertSession(ctx context.Context, id, moduleID string) error
	EndSession(ctx context.Context, sessionID string) error
	RecordAttempt(ctx context.Context, rec model.AttemptRecord) error
}

// Mirror forwards session calls to the remote API and copies them into a
// local log. The remote result decides success; local failures are logged.
type Mirror struct {
	remote RemoteService
	local  LocalLog
	logger *slog.Logger
}

// NewMirror returns a Mirror. A nil logger uses slog.Default.
func NewMirror(remote RemoteService, local LocalLog, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{remote: remote, local: local, logger: logger}
}

func (m *Mirror) StartSession(ctx context.Context, moduleID string) (string, error) {
	id, err := m.remote.StartSession(ctx, moduleID)
	if err != nil {
		return "", err
	}
	if lerr := m.local.InsertSession(ctx, id, moduleID); lerr != nil {
		m.logger.Warn("failed to mirror session start", "session_id", id, "err", lerr)
	}
	return id, nil
}

func (m *Mirror) EndSession(ctx context.Context, sessionID string) error {
	err := m.remote.EndSession(ctx, sessionID)
	if lerr := m.local.EndSession(ctx, sessionID); lerr != nil {
		m.logger.Warn("failed to mirror session end", "session_id", sessionID, "err", lerr)
	}
	return err
}

func (m *Mirror) RecordAttempt(ctx context.Context, rec model.AttemptRecord) error {
	err := m.remote.RecordAttempt(ctx, rec)
	if lerr := m.local.RecordAttempt(ctx, rec); lerr != nil {
		m.logger.Warn("failed to mirror attempt", "session_id", rec.SessionID, "target", rec.TargetLabel, "err", lerr)
	}
	return err
}

// TargetSource lists targets for a module.
type TargetSource interface {
	GetTargets(ctx context.Context, moduleID string) ([]model.Target, error)
}

// TargetCache stores the last good target list of each module.
type TargetCache interface {
	TargetSource
	SaveTargets(ctx context.Context, moduleID string, targets []model.Target) error
}

// CachedCatalog serves the remote catalog and falls back to the cache when
// the API is unreachable.
type CachedCatalog struct {
	remote TargetSource
	cache  TargetCache
	logger *slog.Logger
}

// NewCachedCatalog returns a CachedCatalog. A nil logger uses slog.Default.
func NewCachedCatalog(remote TargetSource, cache TargetCache, logger *slog.Logger) *CachedCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCatalog{remote: remote, cache: cache, logger: logger}
}

// GetTargets returns the remote list, or the cached one if the remote fails.
func (c *CachedCatalog) GetTargets(ctx context.Context, moduleID string) ([]model.Target, error) {
	targets, err := c.remote.GetTargets(ctx, moduleID)
	if err == nil && len(targets) > 0 {
		if serr := c.cache.SaveTargets(ctx, moduleID, targets); serr != nil {
			c.logger.Warn("failed to cache targets", "module", moduleID, "err", serr)
		}
		return targets, nil
	}
	cached, cerr := c.cache.GetTargets(ctx, moduleID)
	if cerr != nil {
		if err == nil {
			return targets, nil
		}
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	c.logger.Warn("using cached targets", "module", moduleID, "err", err)
	return cached, nil
}
