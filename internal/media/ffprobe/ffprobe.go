package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ytclip/internal/media"
	"ytclip/internal/services"
	"ytclip/internal/services/process"
)

// Result is the decoded ffprobe -show_format -show_streams payload.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one stream of the container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format carries container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Option configures a Prober.
type Option func(*Prober)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec process.Executor) Option {
	return func(p *Prober) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// Prober runs ffprobe against finished outputs.
type Prober struct {
	binary string
	exec   process.Executor
}

// New constructs a prober. An empty binary falls back to "ffprobe".
func New(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	p := &Prober{binary: binary, exec: process.NewExecutor()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inspect executes ffprobe against path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	var out strings.Builder
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	err := p.exec.Run(ctx, p.binary, args, func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
	}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	var result Result
	if err := json.Unmarshal([]byte(out.String()), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Verify checks that path decodes as a usable output for format: at least one
// stream, an audio stream for mp3 and a video stream otherwise.
func (p *Prober) Verify(ctx context.Context, path string, format media.Format) error {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, services.StageFinalize, "verify output", path, err)
	}
	var problem string
	switch {
	case len(result.Streams) == 0:
		problem = "output has no streams"
	case format.AudioOnly() && result.AudioStreamCount() == 0:
		problem = "output has no audio stream"
	case !format.AudioOnly() && result.VideoStreamCount() == 0:
		problem = "output has no video stream"
	}
	if problem != "" {
		return services.Wrap(services.ErrExternalTool, services.StageFinalize, "verify output", problem, nil)
	}
	return nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countType("audio")
}

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration, 0 when absent and NaN when unparsable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
