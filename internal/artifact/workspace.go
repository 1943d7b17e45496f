package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ytclip/internal/logging"
	"ytclip/internal/media"
	"ytclip/internal/services"
)

const (
	inputBase  = "input"
	outputBase = "output"
)

// partialSuffixes are left behind by the downloader while a transfer is incomplete.
var partialSuffixes = []string{".part", ".ytdl", ".temp"}

// Workspace manages run directories beneath a single root.
type Workspace struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]int
}

// NewWorkspace returns a workspace rooted at root. The directory is created on demand.
func NewWorkspace(root string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workspace{
		root:   root,
		logger: logger.With(logging.String(logging.FieldComponent, "artifact")),
		active: make(map[string]int),
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// Create makes the run directory and marks the run active until Release.
func (w *Workspace) Create(runID string) (string, error) {
	if !ValidRunID(runID) {
		return "", services.Invalid("run", "invalid run id")
	}
	dir := w.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	w.acquire(runID)
	return dir, nil
}

// Release drops the pipeline's hold on the run so the janitor may reclaim it.
func (w *Workspace) Release(runID string) {
	w.release(runID)
}

func (w *Workspace) acquire(runID string) {
	w.mu.Lock()
	w.active[runID]++
	w.mu.Unlock()
}

func (w *Workspace) release(runID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active[runID] <= 1 {
		delete(w.active, runID)
		return
	}
	w.active[runID]--
}

// Active reports whether a pipeline still owns the run.
func (w *Workspace) Active(runID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.active[runID]
	return ok
}

// ActiveCount returns the number of runs currently owned by a pipeline.
func (w *Workspace) ActiveCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// RunDir returns the directory for a run.
func (w *Workspace) RunDir(runID string) string {
	return filepath.Join(w.root, runID)
}

// InputTemplate is the downloader output template for a run.
func (w *Workspace) InputTemplate(runID string) string {
	return filepath.Join(w.RunDir(runID), inputBase+".%(ext)s")
}

// OutputPath returns the output slot for a run and format.
func (w *Workspace) OutputPath(runID string, format media.Format) string {
	return filepath.Join(w.RunDir(runID), outputBase+"."+format.Extension())
}

// FindInput locates the downloaded input file for a run. Partial downloads are
// ignored; when several candidates remain the lexically first wins.
func (w *Workspace) FindInput(runID string) (string, error) {
	dir := w.RunDir(runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrArtifactMissing, services.StageFinalize, "find input", "run directory missing", err)
		}
		return "", fmt.Errorf("read run directory: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, inputBase+".") || isPartial(name) {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", services.Wrap(services.ErrArtifactMissing, services.StageFinalize, "find input", "no input file in "+dir, nil)
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), nil
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Remove deletes the run directory and everything in it.
func (w *Workspace) Remove(runID string) error {
	if !ValidRunID(runID) {
		return services.Invalid("run", "invalid run id")
	}
	if err := os.RemoveAll(w.RunDir(runID)); err != nil {
		return services.Wrap(services.ErrCleanup, services.StageFinalize, "remove run directory", runID, err)
	}
	return nil
}

// Handle is the retrieval path for a finished output.
func Handle(format media.Format, runID string) string {
	return "/api/file/" + string(format) + "?run=" + url.QueryEscape(runID)
}

// ValidRunID reports whether id is a canonical UUID.
func ValidRunID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == id
}
