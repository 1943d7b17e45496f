package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"ytclip/internal/logging"
	"ytclip/internal/media"
	"ytclip/internal/services"
)

const deliveryLockName = ".delivery.lock"

// ErrBusy is returned when another request is already streaming the output.
var ErrBusy = errors.New("artifact delivery already in progress")

// Delivery is an exclusive claim on a finished output. Callers stream it with
// ServeTo and must call Finish exactly once.
type Delivery struct {
	ws       *Workspace
	runID    string
	format   media.Format
	path     string
	file     *os.File
	size     int64
	lock     *flock.Flock
	lockPath string
	once     sync.Once
}

// Claim locks the output slot for one consumer. A missing slot returns an
// error wrapping services.ErrNotFound; a slot already being streamed returns ErrBusy.
func (w *Workspace) Claim(runID string, format media.Format) (*Delivery, error) {
	if !format.Valid() || !ValidRunID(runID) {
		return nil, notFound(runID, nil)
	}
	path := w.OutputPath(runID, format)
	if _, err := os.Stat(path); err != nil {
		return nil, notFound(runID, err)
	}

	lockPath := filepath.Join(w.RunDir(runID), deliveryLockName)
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(runID, err)
		}
		return nil, fmt.Errorf("claim delivery lock: %w", err)
	}
	if !locked {
		return nil, ErrBusy
	}

	// The previous holder may have finished between Stat and TryLock.
	file, err := os.Open(path)
	if err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
		return nil, notFound(runID, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("stat output: %w", err)
	}

	w.acquire(runID)
	return &Delivery{
		ws:       w,
		runID:    runID,
		format:   format,
		path:     path,
		file:     file,
		size:     info.Size(),
		lock:     lock,
		lockPath: lockPath,
	}, nil
}

func notFound(runID string, err error) error {
	return services.Wrap(services.ErrNotFound, services.StageDelivery, "claim output", "run "+runID, err)
}

// RunID returns the claimed run.
func (d *Delivery) RunID() string { return d.runID }

// Size is the output length in bytes.
func (d *Delivery) Size() int64 { return d.size }

// FileName is the attachment name presented to clients.
func (d *Delivery) FileName() string { return filepath.Base(d.path) }

// ContentType is the MIME type for the output.
func (d *Delivery) ContentType() string { return d.format.ContentType() }

// ServeTo copies the output into dst.
func (d *Delivery) ServeTo(dst io.Writer) (int64, error) {
	n, err := io.Copy(dst, d.file)
	if err != nil {
		return n, services.Wrap(services.ErrExternalTool, services.StageDelivery, "stream output", d.FileName(), err)
	}
	return n, nil
}

// Finish deletes the output, releases the claim and removes the run directory
// when nothing else is left in it. Deletion failures are logged, not returned.
func (d *Delivery) Finish() {
	d.once.Do(func() {
		logger := d.ws.logger.With(logging.String(logging.FieldRunID, d.runID))
		_ = d.file.Close()
		if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "failed to delete delivered output", "artifact_cleanup_failed",
				logging.String("path", d.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the file manually or wait for the janitor"),
				logging.String(logging.FieldImpact, "disk space is held until the janitor sweeps"),
			)
		}
		if err := d.lock.Unlock(); err != nil {
			logger.Debug("release delivery lock failed", logging.Error(err))
		}
		_ = os.Remove(d.lockPath)
		// Only succeeds on an empty directory.
		_ = os.Remove(d.ws.RunDir(d.runID))
		d.ws.release(d.runID)
	})
}
