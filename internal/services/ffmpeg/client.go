package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytclip/internal/media"
	"ytclip/internal/services/process"
	"ytclip/internal/timecode"
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

// WithTimeout bounds a single ffmpeg invocation. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    process.Executor
}

// Clip is a trim window in whole seconds.
type Clip struct {
	Start int
	End   int
}

// Duration is the clip length.
func (c Clip) Duration() time.Duration {
	return time.Duration(c.End-c.Start) * time.Second
}

// New constructs an ffmpeg client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{binary: binary, exec: process.NewExecutor()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable.
func (c *Client) Binary() string { return c.binary }

// ExtractAudio writes the best-quality audio stream of input to output.
func (c *Client) ExtractAudio(ctx context.Context, input, output string, onDiag func(string)) error {
	if err := requirePaths(input, output); err != nil {
		return err
	}
	if err := c.run(ctx, ExtractAudioArgs(input, output), nil, onDiag); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// Trim cuts clip out of input, re-encoding with the preset for format.
// Lines from ffmpeg's -progress channel are forwarded to onProgress.
func (c *Client) Trim(ctx context.Context, input, output string, clip Clip, format media.Format, onProgress, onDiag func(string)) error {
	if err := requirePaths(input, output); err != nil {
		return err
	}
	if clip.End <= clip.Start || clip.Start < 0 {
		return fmt.Errorf("invalid clip %d-%d", clip.Start, clip.End)
	}
	if format.AudioOnly() || !format.Valid() {
		return fmt.Errorf("no trim preset for format %q", format)
	}
	if err := c.run(ctx, TrimArgs(input, output, clip, format), onProgress, onDiag); err != nil {
		return fmt.Errorf("ffmpeg trim: %w", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, args []string, onStdout, onStderr func(string)) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.exec.Run(runCtx, c.binary, args, onStdout, onStderr)
}

// ExtractAudioArgs builds the audio-only extraction command line.
func ExtractAudioArgs(input, output string) []string {
	return []string{"-y", "-hide_banner", "-i", input, "-q:a", "0", "-map", "a", output}
}

// TrimArgs builds the trim command line with the codec preset for format.
func TrimArgs(input, output string, clip Clip, format media.Format) []string {
	args := []string{
		"-y", "-hide_banner",
		"-i", input,
		"-ss", timecode.Format(clip.Start),
		"-to", timecode.Format(clip.End),
	}
	args = append(args, Preset(format)...)
	return append(args, output, "-progress", "pipe:1", "-nostats")
}

// Preset returns the encoder flags used for format.
func Preset(format media.Format) []string {
	switch format {
	case media.FormatWebM:
		return []string{"-c:v", "libvpx-vp9", "-b:v", "4M", "-crf", "30", "-c:a", "libopus", "-b:a", "128k"}
	case media.FormatMP4:
		return []string{"-c:v", "libx264", "-crf", "18", "-preset", "slow", "-c:a", "aac", "-b:a", "192k"}
	default:
		return nil
	}
}

func requirePaths(input, output string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("output path required")
	}
	if input == output {
		return errors.New("input and output must differ")
	}
	return nil
}
