package ingest

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"notifyd/internal/domain"
)

// ScratchDirs manages per-request scratch directories under one parent and
// sweeps stale ones on a schedule. Cleanup is deferred rather than immediate:
// a folder-open side effect may reference staged files long after the HTTP
// response went out.
type ScratchDirs struct {
	root   string
	ttl    time.Duration
	logger *slog.Logger
	cron   *cron.Cron
}

func NewScratchDirs(root string, ttl time.Duration, logger *slog.Logger) *ScratchDirs {
	return &ScratchDirs{root: root, ttl: ttl, logger: logger}
}

// Root returns the parent directory.
func (s *ScratchDirs) Root() string { return s.root }

// NewDir creates a fresh collision-free scratch directory.
func (s *ScratchDirs) NewDir() (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", &domain.ResourceError{Msg: "cannot create scratch root", Err: err}
	}
	dir := filepath.Join(s.root, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", &domain.ResourceError{Msg: "cannot create scratch directory", Err: err}
	}
	return dir, nil
}

// StartSweeper schedules periodic cleanup. A TTL of 0 disables sweeping and
// directories accumulate until something external removes them.
func (s *ScratchDirs) StartSweeper(schedule string) error {
	if s.ttl <= 0 {
		s.logger.Info("scratch sweeper disabled, directories are kept")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("scratch sweeper started", "schedule", schedule, "ttl", s.ttl)
	return nil
}

// StopSweeper stops the scheduled cleanup, waiting for a running sweep.
func (s *ScratchDirs) StopSweeper() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep removes scratch directories older than the TTL. Errors are logged
// per directory; one bad entry never aborts the pass.
func (s *ScratchDirs) Sweep() {
	if s.ttl <= 0 {
		return
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("cannot read scratch root", "root", s.root, "err", err)
		}
		return
	}

	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Error("cannot remove stale scratch directory", "dir", dir, "err", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("swept stale scratch directories", "removed", removed)
	}
}
