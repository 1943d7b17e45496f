package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"

	"ytclip/internal/services"
)

var youtubeHosts = []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}

// ValidateURL checks that raw is an absolute http(s) URL. YouTube links must
// also carry a well-formed video ID, which is returned. Other hosts are left
// to yt-dlp's extractors and yield an empty ID.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, services.StageValidate, "videoUrl", "parse url", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", services.Wrap(services.ErrValidation, services.StageValidate, "videoUrl", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return "", services.Wrap(services.ErrValidation, services.StageValidate, "videoUrl", "missing host", nil)
	}
	if !IsYouTubeHost(parsed.Hostname()) {
		return "", nil
	}
	id, err := yt.ExtractVideoID(raw)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, services.StageValidate, "videoUrl", "extract video id", err)
	}
	return id, nil
}

// IsYouTubeHost reports whether host belongs to YouTube.
func IsYouTubeHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, base := range youtubeHosts {
		if host == base || strings.HasSuffix(host, "."+base) {
			return true
		}
	}
	return false
}

// Info is the metadata shown before a clip is requested.
type Info struct {
	ID        string
	Title     string
	Author    string
	Duration  time.Duration
	Qualities []string
}

// VideoFetcher is the subset of the kkdai client used here.
type VideoFetcher interface {
	GetVideoContext(ctx context.Context, id string) (*yt.Video, error)
}

// Option configures the client.
type Option func(*Client)

// WithFetcher injects a custom fetcher (primarily for tests).
func WithFetcher(f VideoFetcher) Option {
	return func(c *Client) {
		if f != nil {
			c.fetcher = f
		}
	}
}

// Client resolves YouTube metadata.
type Client struct {
	fetcher VideoFetcher
}

// New constructs a metadata client whose HTTP requests time out after timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{fetcher: &yt.Client{HTTPClient: &http.Client{Timeout: timeout}}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches title, author, duration and available qualities for raw.
func (c *Client) Lookup(ctx context.Context, raw string) (Info, error) {
	id, err := ValidateURL(raw)
	if err != nil {
		return Info{}, err
	}
	if id == "" {
		return Info{}, services.Wrap(services.ErrValidation, services.StageInfo, "lookup", "metadata is only available for YouTube links", nil)
	}
	video, err := c.fetcher.GetVideoContext(ctx, id)
	if err != nil {
		return Info{}, classify(err)
	}
	return Info{
		ID:        video.ID,
		Title:     video.Title,
		Author:    video.Author,
		Duration:  video.Duration,
		Qualities: qualities(video.Formats),
	}, nil
}

func classify(err error) error {
	var statusErr *yt.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, yt.ErrVideoPrivate), errors.Is(err, yt.ErrLoginRequired), errors.As(err, &statusErr):
		return services.Wrap(services.ErrNotFound, services.StageInfo, "lookup", "video unavailable", err)
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrCancelled, services.StageInfo, "lookup", "", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, services.StageInfo, "lookup", "", err)
	default:
		return services.Wrap(services.ErrExternalTool, services.StageInfo, "lookup", "youtube metadata", err)
	}
}

// qualities returns distinct video quality labels, tallest first.
func qualities(formats yt.FormatList) []string {
	heights := map[string]int{}
	for _, f := range formats {
		if f.QualityLabel == "" || f.Height <= 0 {
			continue
		}
		label := fmt.Sprintf("%dp", f.Height)
		heights[label] = f.Height
	}
	labels := make([]string, 0, len(heights))
	for label := range heights {
		labels = append(labels, label)
	}
	slices.SortFunc(labels, func(a, b string) int {
		return heights[b] - heights[a]
	})
	return labels
}
