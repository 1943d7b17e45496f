package youtube_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	yt "github.com/kkdai/youtube/v2"

	"ytclip/internal/services"
	"ytclip/internal/services/youtube"
)

type stubFetcher struct {
	video *yt.Video
	err   error
	ids   []string
}

func (s *stubFetcher) GetVideoContext(ctx context.Context, id string) (*yt.Video, error) {
	s.ids = append(s.ids, id)
	return s.video, s.err
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw    string
		wantID string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://vimeo.com/123456", ""},
	}
	for _, tc := range tests {
		id, err := youtube.ValidateURL(tc.raw)
		if err != nil {
			t.Fatalf("ValidateURL(%q): %v", tc.raw, err)
		}
		if id != tc.wantID {
			t.Fatalf("ValidateURL(%q) id = %q, want %q", tc.raw, id, tc.wantID)
		}
	}
}

func TestValidateURLRejects(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=bad"} {
		_, err := youtube.ValidateURL(raw)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ValidateURL(%q): expected validation error, got %v", raw, err)
		}
	}
}

func TestLookup(t *testing.T) {
	fetcher := &stubFetcher{video: &yt.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Author:   "Rick Astley",
		Duration: 213 * time.Second,
		Formats: yt.FormatList{
			{QualityLabel: "360p", Height: 360},
			{QualityLabel: "1080p", Height: 1080},
			{QualityLabel: "720p60", Height: 720},
			{QualityLabel: "720p", Height: 720},
			{MimeType: "audio/webm"},
		},
	}}
	client := youtube.New(time.Second, youtube.WithFetcher(fetcher))
	info, err := client.Lookup(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if info.Title != "Never Gonna Give You Up" || info.Duration != 213*time.Second {
		t.Fatalf("unexpected info: %+v", info)
	}
	if !slices.Equal(info.Qualities, []string{"1080p", "720p", "360p"}) {
		t.Fatalf("unexpected qualities: %v", info.Qualities)
	}
	if len(fetcher.ids) != 1 || fetcher.ids[0] != "dQw4w9WgXcQ" {
		t.Fatalf("expected lookup by id, got %v", fetcher.ids)
	}
}

func TestLookupClassifiesPrivateVideo(t *testing.T) {
	client := youtube.New(time.Second, youtube.WithFetcher(&stubFetcher{err: yt.ErrVideoPrivate}))
	_, err := client.Lookup(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLookupRejectsNonYouTube(t *testing.T) {
	fetcher := &stubFetcher{}
	client := youtube.New(time.Second, youtube.WithFetcher(fetcher))
	if _, err := client.Lookup(context.Background(), "https://vimeo.com/1"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fetcher.ids) != 0 {
		t.Fatal("fetcher should not be called")
	}
}
