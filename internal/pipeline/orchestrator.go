package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ytclip/internal/artifact"
	"ytclip/internal/history"
	"ytclip/internal/logging"
	"ytclip/internal/media"
	"ytclip/internal/progress"
	"ytclip/internal/services"
	"ytclip/internal/services/ffmpeg"
	"ytclip/internal/services/ytdlp"
)

// Downloader fetches the source media. *ytdlp.Client satisfies it.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.Request, onLine, onDiag func(string)) error
}

// Transcoder post-processes the download. *ffmpeg.Client satisfies it.
type Transcoder interface {
	ExtractAudio(ctx context.Context, input, output string, onDiag func(string)) error
	Trim(ctx context.Context, input, output string, clip ffmpeg.Clip, format media.Format, onProgress, onDiag func(string)) error
}

// Verifier checks a finished output before it is offered for delivery.
type Verifier interface {
	Verify(ctx context.Context, path string, format media.Format) error
}

// Recorder persists run outcomes. *history.Store satisfies it.
type Recorder interface {
	Start(ctx context.Context, rec history.Record) error
	UpdateState(ctx context.Context, runID, state string) error
	Finish(ctx context.Context, runID, state, errorMessage string, outputBytes int64) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifier enables output verification.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) { o.verifier = v }
}

// WithRecorder enables run history.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithIDGenerator overrides run ID generation (primarily for tests).
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Orchestrator drives runs from request to artifact.
type Orchestrator struct {
	downloader Downloader
	transcoder Transcoder
	workspace  *artifact.Workspace
	verifier   Verifier
	recorder   Recorder
	logger     *slog.Logger
	newID      func() string
}

// New constructs an orchestrator.
func New(downloader Downloader, transcoder Transcoder, ws *artifact.Workspace, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if downloader == nil || transcoder == nil || ws == nil {
		return nil, errors.New("orchestrator requires downloader, transcoder, and workspace")
	}
	o := &Orchestrator{
		downloader: downloader,
		transcoder: transcoder,
		workspace:  ws,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	State       State
	DownloadURL string
	OutputPath  string
	OutputBytes int64
	Err         error
}

// run is the per-request state. It is owned by the goroutine executing Run.
type run struct {
	o       *Orchestrator
	id      string
	req     Request
	plan    Plan
	state   State
	prefix  string
	tracker *progress.Tracker
	sampler *logging.ProgressSampler
	stream  Stream
	logger  *slog.Logger
	input   string
	output  string

	streamErr error
	ended     bool
	recorded  bool
	merged    bool
	cutDone   bool
}

// Run executes req, writing events to stream. The stream is closed exactly
// once before Run returns, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request, stream Stream) Result {
	r := &run{
		o:       o,
		id:      o.newID(),
		req:     req,
		plan:    PlanFor(req),
		state:   StateIdle,
		sampler: logging.NewProgressSampler(10),
		stream:  stream,
	}
	defer r.closeStream()
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, o.logger)

	if err := r.start(ctx); err != nil {
		return r.fail(ctx, err)
	}
	defer o.workspace.Release(r.id)

	r.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("format", string(req.Format)),
		logging.String("quality", req.Quality),
		logging.String("plan", r.plan.String()),
	)

	if err := r.download(ctx); err != nil {
		return r.fail(ctx, err)
	}
	if err := r.process(ctx); err != nil {
		return r.fail(ctx, err)
	}
	return r.finish(ctx)
}

func (r *run) start(ctx context.Context) error {
	err := r.req.Validate()
	var tracker *progress.Tracker
	if err == nil {
		var opts []progress.TrackerOption
		if r.plan == PlanTrim {
			opts = append(opts, progress.WithTranscodeDuration(r.clip().Duration()))
		}
		tracker, err = progress.NewTracker(ytdlp.SubPhases(r.req.Format), opts...)
	}
	if err == nil {
		_, err = r.o.workspace.Create(r.id)
	}
	r.advance(ctx, err)
	if err != nil {
		return err
	}
	r.tracker = tracker
	if r.req.TwoPhase() {
		r.prefix = prefixFirst
	}
	if r.o.recorder != nil {
		rec := history.Record{
			RunID:      r.id,
			SourceURL:  r.req.SourceURL,
			Format:     string(r.req.Format),
			Quality:    r.req.Quality,
			RangeStart: r.req.RangeStart,
			RangeEnd:   r.req.RangeEnd,
			State:      string(r.state),
		}
		if err := r.o.recorder.Start(context.WithoutCancel(ctx), rec); err != nil {
			r.warnHistory(err)
		} else {
			r.recorded = true
		}
	}
	return nil
}

func (r *run) download(ctx context.Context) error {
	ctx = services.WithStage(ctx, services.StageDownload)
	logger := logging.WithContext(ctx, r.o.logger)

	dl := ytdlp.Request{
		URL:            r.req.SourceURL,
		Format:         r.req.Format,
		Quality:        r.req.Quality,
		OutputTemplate: r.o.workspace.InputTemplate(r.id),
	}
	onLine := func(line string) {
		ev, ok := progress.ParseDownloadLine(line)
		if !ok {
			logger.Debug("yt-dlp output", logging.String("line", line))
			return
		}
		if ev.Kind == progress.KindMerge {
			if !r.merged {
				r.merged = true
				r.send(Event{Progress: r.prefix + labelFinishing})
			}
			return
		}
		pct, emit := r.tracker.Download(ev)
		if !emit {
			return
		}
		r.send(Event{Progress: downloadingLabel(r.prefix, pct)})
		if r.sampler.ShouldLog(pct, services.StageDownload) {
			logger.Info("download progress",
				logging.Float64(logging.FieldPercent, pct),
				logging.Int("sub_phases", r.tracker.SubPhases()),
				logging.Int("completed", r.tracker.CompletedSubPhases()),
			)
		}
	}
	onDiag := func(line string) {
		logger.Debug("yt-dlp stderr", logging.String("line", line))
	}

	err := r.o.downloader.Download(ctx, dl, onLine, onDiag)
	if err != nil {
		err = classify(ctx, err, services.StageDownload, "yt-dlp download")
	}
	r.advance(ctx, err)
	if err != nil {
		return err
	}

	r.send(Event{Progress: r.prefix + labelDownloadComplete})
	input, err := r.o.workspace.FindInput(r.id)
	if err != nil {
		r.advance(ctx, err)
		return err
	}
	r.input = input
	r.output = r.o.workspace.OutputPath(r.id, r.req.Format)
	logger.Info("download complete", logging.String("input", filepath.Base(input)))
	return nil
}

func (r *run) process(ctx context.Context) error {
	r.advance(ctx, nil)
	ctx = services.WithStage(ctx, services.StageTranscode)
	logger := logging.WithContext(ctx, r.o.logger)
	onDiag := func(line string) {
		logger.Debug("ffmpeg stderr", logging.String("line", line))
	}

	var err error
	switch r.state {
	case StateExtracting:
		err = r.o.transcoder.ExtractAudio(ctx, r.input, r.output, onDiag)
	case StateTrimming:
		err = r.trim(ctx, logger, onDiag)
	case StateRenaming:
		err = r.rename(logger)
	}
	if err != nil {
		err = classify(ctx, err, services.StageTranscode, r.plan.String())
	} else if r.o.verifier != nil {
		err = r.o.verifier.Verify(ctx, r.output, r.req.Format)
		if err != nil {
			err = classify(ctx, err, services.StageFinalize, "verify output")
		}
	}
	r.advance(ctx, err)
	return err
}

func (r *run) trim(ctx context.Context, logger *slog.Logger, onDiag func(string)) error {
	r.send(Event{Progress: labelPreparingCut})
	r.prefix = prefixSecond
	r.sampler.Reset()
	onProgress := func(line string) {
		ev, ok := progress.ParseTranscodeLine(line)
		if !ok {
			return
		}
		if ev.Kind == progress.KindEnd {
			if !r.cutDone {
				r.cutDone = true
				r.send(Event{Progress: labelCutComplete})
			}
			return
		}
		pct, emit := r.tracker.Transcode(ev)
		if !emit {
			return
		}
		r.send(Event{Progress: cuttingLabel(pct)})
		if r.sampler.ShouldLog(pct, services.StageTranscode) {
			logger.Info("trim progress", logging.Float64(logging.FieldPercent, pct))
		}
	}
	return r.o.transcoder.Trim(ctx, r.input, r.output, r.clip(), r.req.Format, onProgress, onDiag)
}

func (r *run) rename(logger *slog.Logger) error {
	if ext := strings.TrimPrefix(filepath.Ext(r.input), "."); !strings.EqualFold(ext, r.req.Format.Extension()) {
		logging.WarnWithContext(logger, "downloaded container differs from requested format", "container_mismatch",
			logging.String("downloaded", ext),
			logging.String("requested", r.req.Format.Extension()),
			logging.String(logging.FieldErrorHint, "request a trim to force re-encoding"),
			logging.String(logging.FieldImpact, "file is served under the requested extension unchanged"),
		)
	}
	if err := os.Rename(r.input, r.output); err != nil {
		return services.Wrap(services.ErrExternalTool, services.StageFinalize, "rename input", "", err)
	}
	r.input = ""
	return nil
}

func (r *run) finish(ctx context.Context) Result {
	r.removeInput()
	var size int64
	if info, err := os.Stat(r.output); err == nil {
		size = info.Size()
	}
	handle := artifact.Handle(r.req.Format, r.id)
	label := labelProcessed
	if r.plan == PlanRename {
		label = labelRenamed
	}
	r.send(Event{Progress: label, DownloadURL: handle})
	r.record(ctx, "", size)
	r.logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", filepath.Base(r.output)),
		logging.Int64("bytes", size),
	)
	return Result{RunID: r.id, State: r.state, DownloadURL: handle, OutputPath: r.output, OutputBytes: size}
}

func (r *run) fail(ctx context.Context, err error) Result {
	msg := services.ClientMessage(err)
	r.send(Event{Error: msg})
	if r.state != StateRejected {
		if rmErr := r.o.workspace.Remove(r.id); rmErr != nil {
			logging.WarnWithContext(r.logger, "failed to remove run directory", "cleanup_failed",
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "the janitor will retry after the artifact TTL"),
				logging.String(logging.FieldImpact, "disk space held until cleanup"),
			)
		}
		r.record(ctx, msg, 0)
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_failed"),
		logging.String("state", string(r.state)),
		logging.Error(err),
	}
	if r.state == StateRejected || r.state == StateCancelled {
		r.logger.Info("run ended", logging.Args(attrs...)...)
	} else {
		logging.ErrorWithContext(r.logger, "run failed", "run_failed", attrs...)
	}
	return Result{RunID: r.id, State: r.state, Err: err}
}

// advance applies Transition and mirrors the new state to history.
func (r *run) advance(ctx context.Context, err error) {
	next := Transition(r.state, r.plan, err)
	if next == r.state {
		return
	}
	r.logger.Debug("state change", logging.String("from", string(r.state)), logging.String("to", string(next)))
	r.state = next
	if r.recorded && !next.Terminal() && next != StateDownloading {
		if err := r.o.recorder.UpdateState(context.WithoutCancel(ctx), r.id, string(next)); err != nil {
			r.warnHistory(err)
		}
	}
}

func (r *run) record(ctx context.Context, msg string, size int64) {
	if !r.recorded {
		return
	}
	if err := r.o.recorder.Finish(context.WithoutCancel(ctx), r.id, string(r.state), msg, size); err != nil {
		r.warnHistory(err)
	}
}

func (r *run) removeInput() {
	if r.input == "" {
		return
	}
	if err := os.Remove(r.input); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(r.logger, "failed to delete input file", "cleanup_failed",
			logging.String("path", r.input),
			logging.Error(services.Wrap(services.ErrCleanup, services.StageFinalize, "remove input", "", err)),
			logging.String(logging.FieldImpact, "input is removed with the run directory after delivery or TTL"),
		)
	}
}

func (r *run) send(ev Event) {
	if r.streamErr != nil || r.ended {
		return
	}
	r.ended = ev.Terminal()
	if err := r.stream.Send(ev); err != nil {
		r.streamErr = err
		r.logger.Debug("event stream unavailable", logging.Error(err))
	}
}

func (r *run) closeStream() {
	if err := r.stream.Close(); err != nil {
		r.logger.Debug("close event stream", logging.Error(err))
	}
}

func (r *run) warnHistory(err error) {
	logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "run is missing from history"),
	)
}

func (r *run) clip() ffmpeg.Clip {
	end := r.req.RangeStart
	if r.req.RangeEnd != nil {
		end = *r.req.RangeEnd
	}
	return ffmpeg.Clip{Start: r.req.RangeStart, End: end}
}

// classify tags a step error with the marker used for the client message.
func classify(ctx context.Context, err error, stage, op string) error {
	switch {
	case errors.Is(err, services.ErrCancelled), errors.Is(err, services.ErrTimeout):
		return err
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return services.Wrap(services.ErrCancelled, stage, op, "", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stage, op, "", err)
	case errors.Is(err, services.ErrExternalTool) && services.StageOf(err) == stage:
		return err
	default:
		return services.Wrap(services.ErrExternalTool, stage, op, "", err)
	}
}
