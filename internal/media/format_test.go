package media_test

import (
	"testing"

	"ytclip/internal/media"
)

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"mp4", "MP4", " webm ", "mp3"} {
		if _, err := media.ParseFormat(in); err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
	}
	for _, in := range []string{"", "mkv", "avi", "mp"} {
		if _, err := media.ParseFormat(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := map[media.Format]string{
		media.FormatMP3:  "audio/mpeg",
		media.FormatMP4:  "video/mp4",
		media.FormatWebM: "video/webm",
	}
	for f, want := range cases {
		if got := f.ContentType(); got != want {
			t.Fatalf("%s ContentType = %q, want %q", f, got, want)
		}
	}
}

func TestMaxHeight(t *testing.T) {
	cases := map[string]int{
		"1080p":   1080,
		"720p":    720,
		"720p60":  720,
		"480":     480,
		"best":    0,
		"":        0,
		"-1p":     0,
		"highest": 0,
	}
	for in, want := range cases {
		if got := media.MaxHeight(in); got != want {
			t.Fatalf("MaxHeight(%q) = %d, want %d", in, got, want)
		}
	}
}
