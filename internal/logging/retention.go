package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// RetentionResult summarizes one pruning pass.
type RetentionResult struct {
	Removed    int
	FreedBytes int64
}

// CleanupOldLogs removes files matching targets whose modification time is
// more than retentionDays in the past. Zero or negative retentionDays is a no-op.
// Files listed in any target's Exclude survive regardless of age.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) RetentionResult {
	var result RetentionResult
	if retentionDays <= 0 {
		return result
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := excludedPaths(targets)

	for _, target := range targets {
		for _, candidate := range expiredFiles(target, cutoff) {
			if _, skip := keep[candidate.path]; skip {
				continue
			}
			if err := os.Remove(candidate.path); err != nil {
				WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
					String("path", candidate.path),
					Error(err),
					String(FieldErrorHint, "check file permissions and log_dir ownership"),
					String(FieldImpact, "old log file remains on disk"),
				)
				continue
			}
			result.Removed++
			result.FreedBytes += candidate.size
		}
	}

	if result.Removed > 0 {
		logger.Info("old logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("files", result.Removed),
			String("freed", humanize.Bytes(uint64(result.FreedBytes))),
		)
	}
	return result
}

type expiredFile struct {
	path string
	size int64
}

func expiredFiles(target RetentionTarget, cutoff time.Time) []expiredFile {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	pattern := strings.TrimSpace(target.Pattern)
	var out []expiredFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, expiredFile{path: absolute(filepath.Join(dir, entry.Name())), size: info.Size()})
	}
	return out
}

func excludedPaths(targets []RetentionTarget) map[string]struct{} {
	keep := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				keep[absolute(trimmed)] = struct{}{}
			}
		}
	}
	return keep
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
