package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"AC/DC: Live *Now*", "AC-DC- Live -Now-"},
		{"  What?  \"Quoted\" <tag>|pipe ", "What Quoted tagpipe"},
		{"tab\tand\nnewline", "tab and newline"},
		{"...hidden.", "hidden"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("é", 300))
	if n := len([]rune(got)); n != maxFileNameRunes {
		t.Fatalf("expected %d runes, got %d", maxFileNameRunes, n)
	}
}

func TestClipFileName(t *testing.T) {
	if got := ClipFileName("My Video", "1:05 - 2:10", "mp4", "output"); got != "My Video [1-05 - 2-10].mp4" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := ClipFileName("???", "", ".mp3", "output"); got != "output.mp3" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
