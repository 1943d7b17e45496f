package preflight

import (
	"context"

	"ytclip/internal/config"
	"ytclip/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Report bundles directory checks with tool availability.
type Report struct {
	Directories []Result
	Tools       []deps.Status
}

// Ready reports whether every directory passed and no required tool is missing.
func (r Report) Ready() bool {
	for _, d := range r.Directories {
		if !d.Passed {
			return false
		}
	}
	return len(deps.MissingRequired(r.Tools)) == 0
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) Report {
	if cfg == nil {
		return Report{}
	}
	dirs := []Result{CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir)}
	if cfg.History.Enabled {
		dirs = append(dirs, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	if cfg.Paths.LogDir != "" {
		dirs = append(dirs, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return Report{Directories: dirs, Tools: CheckSystemDeps(ctx, cfg)}
}
