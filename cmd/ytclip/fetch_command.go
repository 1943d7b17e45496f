package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ytclip/internal/artifact"
	"ytclip/internal/config"
	"ytclip/internal/fileutil"
	"ytclip/internal/history"
	"ytclip/internal/logging"
	"ytclip/internal/media"
	"ytclip/internal/media/ffprobe"
	"ytclip/internal/pipeline"
	"ytclip/internal/services"
	"ytclip/internal/services/ffmpeg"
	"ytclip/internal/services/youtube"
	"ytclip/internal/services/ytdlp"
	"ytclip/internal/textutil"
	"ytclip/internal/timecode"
)

type fetchOptions struct {
	start   string
	end     string
	format  string
	quality string
	out     string
	verbose bool
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	opts := fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download (and optionally trim) a video locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, ctx, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.start, "start", "0:00", "Clip start (M:SS or H:MM:SS)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Clip end; omit to keep the whole video")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(media.FormatMP4), "Output format: mp4, webm or mp3")
	cmd.Flags().StringVarP(&opts.quality, "quality", "q", media.DefaultQuality, "Maximum video quality, e.g. 720p")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Destination file or directory (default: video title in the current directory)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show service logs")
	return cmd
}

func runFetch(cmd *cobra.Command, ctx *commandContext, rawURL string, opts fetchOptions) error {
	req, err := pipeline.ParseSubmission(pipeline.Submission{
		VideoURL:  &rawURL,
		StartTime: &opts.start,
		EndTime:   &opts.end,
		Format:    &opts.format,
		Quality:   &opts.quality,
	})
	if err != nil {
		return errors.New(services.ClientMessage(err))
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ws := artifact.NewWorkspace(cfg.Paths.WorkDir, logger)
	orch, store, err := newLocalOrchestrator(cfg, ws, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	out := cmd.OutOrStdout()
	printer := newProgressPrinter(out)
	result := orch.Run(cmd.Context(), req, printer)
	if result.State.Failed() {
		return fmt.Errorf("%s: %w", services.ClientMessage(result.Err), result.Err)
	}

	dest, err := fetchDestination(cmd.Context(), cfg, req, opts.out)
	if err != nil {
		_ = ws.Remove(result.RunID)
		return err
	}
	if err := fileutil.MoveFile(result.OutputPath, dest); err != nil {
		return fmt.Errorf("save output (left at %s): %w", result.OutputPath, err)
	}
	if err := ws.Remove(result.RunID); err != nil {
		logger.Warn("failed to remove run directory", logging.String(logging.FieldRunID, result.RunID), logging.Error(err))
	}
	if store != nil {
		if err := store.MarkDelivered(context.WithoutCancel(cmd.Context()), result.RunID); err != nil {
			logger.Warn("failed to record delivery", logging.Error(err))
		}
	}

	fmt.Fprintf(out, "Saved %s (%s)\n", dest, humanize.Bytes(uint64(max(result.OutputBytes, 0))))
	return nil
}

// newLocalOrchestrator wires the same pipeline the daemon uses. The returned
// store is nil when history is disabled.
func newLocalOrchestrator(cfg *config.Config, ws *artifact.Workspace, logger *slog.Logger) (*pipeline.Orchestrator, *history.Store, error) {
	downloader, err := ytdlp.New(cfg.Tools.YtDlp,
		ytdlp.WithRetries(cfg.Tools.ExtractorRetries, cfg.Tools.FragmentRetries),
		ytdlp.WithTimeout(cfg.DownloadTimeout()),
	)
	if err != nil {
		return nil, nil, err
	}
	transcoder, err := ffmpeg.New(cfg.Tools.FFmpeg, ffmpeg.WithTimeout(cfg.TranscodeTimeout()))
	if err != nil {
		return nil, nil, err
	}

	var opts []pipeline.Option
	if cfg.Artifacts.VerifyOutput {
		opts = append(opts, pipeline.WithVerifier(ffprobe.New(cfg.Tools.FFprobe)))
	}
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		opts = append(opts, pipeline.WithRecorder(store))
	}
	orch, err := pipeline.New(downloader, transcoder, ws, logger, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}
	return orch, store, nil
}

// fetchDestination resolves --out. Directories and the empty value get a
// name derived from the video title.
func fetchDestination(ctx context.Context, cfg *config.Config, req pipeline.Request, out string) (string, error) {
	out = strings.TrimSpace(out)
	dir := "."
	if out != "" {
		info, err := os.Stat(out)
		switch {
		case err == nil && info.IsDir():
			dir = out
		case err == nil || errors.Is(err, os.ErrNotExist):
			if mkErr := os.MkdirAll(filepath.Dir(out), 0o755); mkErr != nil {
				return "", fmt.Errorf("create destination directory: %w", mkErr)
			}
			return out, nil
		default:
			return "", fmt.Errorf("check destination: %w", err)
		}
	}

	title := ""
	if info, err := youtube.New(cfg.MetadataTimeout()).Lookup(ctx, req.SourceURL); err == nil {
		title = info.Title
	}
	name := textutil.ClipFileName(title, clipSpan(req), req.Format.Extension(), "output")
	return filepath.Join(dir, name), nil
}

func clipSpan(req pipeline.Request) string {
	if req.RangeEnd == nil || pipeline.PlanFor(req) != pipeline.PlanTrim {
		return ""
	}
	return timecode.Format(req.RangeStart) + " - " + timecode.Format(*req.RangeEnd)
}

// progressPrinter renders pipeline events on a terminal, rewriting one line
// in place when attached to a TTY.
type progressPrinter struct {
	out      io.Writer
	tty      bool
	last     string
	inLine   bool
	maxWidth int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, tty: shouldColorize(out)}
}

func (p *progressPrinter) Send(event any) error {
	ev, ok := event.(pipeline.Event)
	if !ok {
		return nil
	}
	if ev.Error != "" {
		p.finishLine()
		msg := "error: " + ev.Error
		if p.tty {
			msg = ansiRed + msg + ansiReset
		}
		_, err := fmt.Fprintln(p.out, msg)
		return err
	}
	if ev.Progress == "" || ev.Progress == p.last {
		return nil
	}
	p.last = ev.Progress
	if !p.tty {
		_, err := fmt.Fprintln(p.out, ev.Progress)
		return err
	}
	p.maxWidth = max(p.maxWidth, len(ev.Progress))
	_, err := fmt.Fprintf(p.out, "\r%-*s", p.maxWidth, ev.Progress)
	p.inLine = true
	return err
}

func (p *progressPrinter) Close() error {
	p.finishLine()
	return nil
}

func (p *progressPrinter) finishLine() {
	if p.inLine {
		fmt.Fprintln(p.out)
		p.inLine = false
	}
}
