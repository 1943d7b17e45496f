package artifact

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"ytclip/internal/logging"
)

// SweepResult summarizes one janitor pass.
type SweepResult struct {
	Removed    int
	Skipped    int
	FreedBytes int64
}

// Janitor reclaims run directories older than a TTL that no pipeline or
// delivery currently holds.
type Janitor struct {
	ws     *Workspace
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewJanitor builds a janitor for ws. A non-positive ttl disables sweeping.
func NewJanitor(ws *Workspace, ttl time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		ws:     ws,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "janitor"),
		now:    time.Now,
	}
}

// Sweep runs a single pass.
func (j *Janitor) Sweep() SweepResult {
	var result SweepResult
	if j == nil || j.ttl <= 0 {
		return result
	}
	entries, err := os.ReadDir(j.ws.Root())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.WarnWithContext(j.logger, "janitor could not read work directory", "janitor_read_failed",
				logging.String("root", j.ws.Root()),
				logging.Error(err),
			)
		}
		return result
	}
	cutoff := j.now().Add(-j.ttl)
	for _, entry := range entries {
		if !entry.IsDir() || !ValidRunID(entry.Name()) {
			continue
		}
		runID := entry.Name()
		if j.ws.Active(runID) {
			result.Skipped++
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		size := dirSize(j.ws.RunDir(runID))
		if err := j.ws.Remove(runID); err != nil {
			logging.WarnWithContext(j.logger, "janitor failed to remove run directory", "janitor_remove_failed",
				logging.String(logging.FieldRunID, runID),
				logging.Error(err),
			)
			continue
		}
		result.Removed++
		result.FreedBytes += size
		j.logger.Info("expired run directory removed",
			logging.String(logging.FieldRunID, runID),
			logging.String("age", humanize.RelTime(info.ModTime(), j.now(), "old", "from now")),
			logging.String("size", humanize.Bytes(uint64(size))),
		)
	}
	if result.Removed > 0 {
		j.logger.Info("janitor sweep complete",
			logging.Int("removed", result.Removed),
			logging.String("freed", humanize.Bytes(uint64(result.FreedBytes))),
		)
	}
	return result
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if j == nil || j.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
