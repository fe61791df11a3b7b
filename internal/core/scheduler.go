package core

// scheduler.go removes old run directories from the output directory.
//
// Every run writes into OUTPUT_DIR/<run-id>/ and the download is served from
// there, so the directories pile up. The sweeper deletes those older than the
// retention period. Only directories named by a run ID are touched; anything
// else an operator keeps in OUTPUT_DIR is left alone.

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RetentionConfig holds configuration for the output sweeper.
type RetentionConfig struct {
	Retention     time.Duration // age after which a run directory is removed (default: 24h)
	CheckInterval time.Duration // how often to sweep (default: 1h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Hour
	}
	return c
}

// StartRetentionSweeper sweeps once immediately, then every CheckInterval,
// until ctx is cancelled.
func (s *Service) StartRetentionSweeper(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention sweeper started",
		"output_dir", s.outputDir,
		"retention", cfg.Retention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.runSweep(cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(cfg.Retention)
		}
	}
}

func (s *Service) runSweep(retention time.Duration) {
	start := time.Now()
	removed, err := SweepOutputs(s.outputDir, s.now().Add(-retention))
	if err != nil {
		slog.Error("retention sweep failed", "error", err, "removed", removed)
		return
	}
	slog.Info("retention sweep completed",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// SweepOutputs removes run directories under dir last modified before
// cutoff. It keeps going past individual failures and returns them joined.
func SweepOutputs(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
