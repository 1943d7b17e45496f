package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"

	"ytclip/internal/media"
	"ytclip/internal/services/process"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec process.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithRetries sets yt-dlp's extractor and fragment retry counts.
func WithRetries(extractor, fragment int) Option {
	return func(c *Client) {
		if extractor >= 0 {
			c.extractorRetries = extractor
		}
		if fragment >= 0 {
			c.fragmentRetries = fragment
		}
	}
}

// WithTimeout bounds a single download. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary           string
	extractorRetries int
	fragmentRetries  int
	timeout          time.Duration
	exec             process.Executor
}

// Request describes one download.
type Request struct {
	URL     string
	Format  media.Format
	Quality string
	// OutputTemplate is passed to -o; the extension is left to yt-dlp.
	OutputTemplate string
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:           binary,
		extractorRetries: 3,
		fragmentRetries:  10,
		exec:             process.NewExecutor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable.
func (c *Client) Binary() string { return c.binary }

// Download runs yt-dlp and forwards every stdout line to onLine. Stderr lines
// go to onDiag when set.
func (c *Client) Download(ctx context.Context, req Request, onLine, onDiag func(string)) error {
	if strings.TrimSpace(req.URL) == "" {
		return errors.New("download url required")
	}
	if strings.TrimSpace(req.OutputTemplate) == "" {
		return errors.New("output template required")
	}
	if !req.Format.Valid() {
		return fmt.Errorf("unsupported format %q", req.Format)
	}
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cmd := c.Command(runCtx, req)
	if err := c.exec.Run(runCtx, cmd.Args[0], cmd.Args[1:], onLine, onDiag); err != nil {
		return fmt.Errorf("yt-dlp download: %w", err)
	}
	return nil
}

// Command builds the yt-dlp invocation for req. Progress is left to yt-dlp's
// own --newline output so callers can parse raw lines.
func (c *Client) Command(ctx context.Context, req Request) *exec.Cmd {
	return goytdlp.New().
		SetExecutable(c.binary).
		NoPlaylist().
		Newline().
		ExtractorRetries(strconv.Itoa(c.extractorRetries)).
		FragmentRetries(strconv.Itoa(c.fragmentRetries)).
		Format(FormatSelector(req.Format, req.Quality)).
		Output(req.OutputTemplate).
		BuildCommand(ctx, req.URL)
}

// Args returns the argument list Command would pass to the binary.
func (c *Client) Args(req Request) []string {
	return c.Command(context.Background(), req).Args[1:]
}

// FormatSelector returns the -f expression for the requested output. Video
// formats honour a height cap derived from quality.
func FormatSelector(format media.Format, quality string) string {
	height := ""
	if h := media.MaxHeight(quality); h > 0 {
		height = fmt.Sprintf("[height<=%d]", h)
	}
	switch format {
	case media.FormatMP3:
		return "bestaudio/best"
	case media.FormatWebM:
		return "bestvideo[ext=webm]" + height + "+bestaudio[ext=webm]/best[ext=webm]" + height + "/best"
	default:
		return "bestvideo[vcodec^=avc1]" + height + "+bestaudio[acodec^=mp4a]/best[ext=mp4]" + height
	}
}

// SubPhases is the number of streams yt-dlp is expected to fetch for format
// before it announces its actual selection.
func SubPhases(format media.Format) int {
	if format.AudioOnly() {
		return 1
	}
	return 2
}
