package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ytclip/internal/api"
	"ytclip/internal/artifact"
	"ytclip/internal/config"
	"ytclip/internal/history"
	"ytclip/internal/logging"
	"ytclip/internal/media/ffprobe"
	"ytclip/internal/pipeline"
	"ytclip/internal/preflight"
	"ytclip/internal/services/ffmpeg"
	"ytclip/internal/services/youtube"
	"ytclip/internal/services/ytdlp"
)

const retentionInterval = 6 * time.Hour

// Option configures a Daemon.
type Option func(*options)

type options struct {
	downloader pipeline.Downloader
	transcoder pipeline.Transcoder
	verifier   pipeline.Verifier
	fetcher    youtube.VideoFetcher
}

// WithDownloader replaces the yt-dlp client (primarily for tests).
func WithDownloader(d pipeline.Downloader) Option {
	return func(o *options) { o.downloader = d }
}

// WithTranscoder replaces the ffmpeg client (primarily for tests).
func WithTranscoder(t pipeline.Transcoder) Option {
	return func(o *options) { o.transcoder = t }
}

// WithVerifier replaces the ffprobe verifier.
func WithVerifier(v pipeline.Verifier) Option {
	return func(o *options) { o.verifier = v }
}

// WithVideoFetcher replaces the YouTube metadata fetcher.
func WithVideoFetcher(f youtube.VideoFetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// Daemon owns the work directory and serves the HTTP API.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *history.Store
	workspace    *artifact.Workspace
	orchestrator *pipeline.Orchestrator
	janitor      *artifact.Janitor
	videos       *youtube.Client
	admission    *admission
	api          *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	if o.downloader == nil {
		client, err := ytdlp.New(cfg.Tools.YtDlp,
			ytdlp.WithRetries(cfg.Tools.ExtractorRetries, cfg.Tools.FragmentRetries),
			ytdlp.WithTimeout(cfg.DownloadTimeout()),
		)
		if err != nil {
			return nil, fmt.Errorf("yt-dlp client: %w", err)
		}
		o.downloader = client
	}
	if o.transcoder == nil {
		client, err := ffmpeg.New(cfg.Tools.FFmpeg, ffmpeg.WithTimeout(cfg.TranscodeTimeout()))
		if err != nil {
			return nil, fmt.Errorf("ffmpeg client: %w", err)
		}
		o.transcoder = client
	}
	if o.verifier == nil && cfg.Artifacts.VerifyOutput {
		o.verifier = ffprobe.New(cfg.Tools.FFprobe)
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		workspace: artifact.NewWorkspace(cfg.Paths.WorkDir, logger),
		videos:    youtube.New(cfg.MetadataTimeout(), youtube.WithFetcher(o.fetcher)),
		admission: newAdmission(cfg.Server.MaxConcurrentRuns, cfg.Server.SubmissionsPerMinute),
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
	}
	d.janitor = artifact.NewJanitor(d.workspace, cfg.ArtifactTTL(), logger)

	pipelineOpts := []pipeline.Option{}
	if o.verifier != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithVerifier(o.verifier))
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.store = store
		pipelineOpts = append(pipelineOpts, pipeline.WithRecorder(store))
	}
	orch, err := pipeline.New(o.downloader, o.transcoder, d.workspace, logger, pipelineOpts...)
	if err != nil {
		_ = d.closeStore()
		return nil, err
	}
	d.orchestrator = orch
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts background loops and the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ytclip daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.api.baseCtx = d.ctx
	if d.store != nil {
		if n, err := d.store.MarkInterrupted(d.ctx); err != nil {
			logging.WarnWithContext(d.logger, "failed to close out interrupted runs", "history_recovery_failed", logging.Error(err))
		} else if n > 0 {
			d.logger.Info("interrupted runs recorded", logging.Int64("count", n))
		}
	}
	d.janitor.Sweep()

	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return err
	}

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.janitor.Run(d.ctx, d.cfg.JanitorInterval())
	}()
	go func() {
		defer d.wg.Done()
		d.retentionLoop(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("ytclip daemon started",
		logging.String("lock", d.lockPath),
		logging.String("work_dir", d.cfg.Paths.WorkDir),
	)
	return nil
}

// Stop cancels in-flight runs, stops the API and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("ytclip daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.closeStore()
}

func (d *Daemon) closeStore() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status reports runtime and dependency information.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	report := preflight.RunAll(ctx, d.cfg)
	status := api.DaemonStatus{
		Running:           d.running.Load(),
		PID:               os.Getpid(),
		Ready:             report.Ready(),
		ActiveRuns:        d.workspace.ActiveCount(),
		MaxConcurrentRuns: d.admission.capacity(),
		WorkDir:           d.cfg.Paths.WorkDir,
		LockFilePath:      d.lockPath,
		Directories:       api.FromDirectories(report.Directories),
		Dependencies:      api.FromDependencies(report.Tools),
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
	}
	return status
}

func (d *Daemon) retentionLoop(ctx context.Context) {
	d.applyRetention(ctx)
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.applyRetention(ctx)
		}
	}
}

func (d *Daemon) applyRetention(ctx context.Context) {
	if logDir := d.cfg.Paths.LogDir; logDir != "" {
		logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     logDir,
			Pattern: "ytclip*.log",
			Exclude: []string{d.cfg.LogPath()},
		})
	}
	if d.store == nil || d.cfg.History.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -d.cfg.History.RetentionDays)
	n, err := d.store.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check "+filepath.Base(d.store.Path())+" permissions"),
		)
		return
	}
	if n > 0 {
		d.logger.Info("history pruned", logging.Int64("runs", n))
	}
}
