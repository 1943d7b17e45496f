package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"ytclip/internal/media"
	"ytclip/internal/services"
)

type stubExecutor struct {
	stdout string
	err    error
	args   []string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string, onStdout, _ func(string)) error {
	s.args = args
	for _, line := range strings.Split(s.stdout, "\n") {
		if onStdout != nil {
			onStdout(line)
		}
	}
	return s.err
}

const videoProbe = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720},
    {"index": 1, "codec_name": "aac", "codec_type": "audio"}
  ],
  "format": {"filename": "output.mp4", "nb_streams": 2, "duration": "60.000000", "size": "1048576", "format_name": "mov,mp4"}
}`

func TestInspectDecodesOutput(t *testing.T) {
	exec := &stubExecutor{stdout: videoProbe}
	result, err := New("", WithExecutor(exec)).Inspect(context.Background(), "/w/output.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected stream counts: %+v", result.Streams)
	}
	if result.DurationSeconds() != 60 || result.SizeBytes() != 1048576 {
		t.Fatalf("unexpected format: %+v", result.Format)
	}
	if exec.args[len(exec.args)-1] != "/w/output.mp4" {
		t.Fatalf("expected path as final arg, got %v", exec.args)
	}
}

func TestVerify(t *testing.T) {
	audioOnly := `{"streams":[{"index":0,"codec_type":"audio"}],"format":{}}`
	tests := []struct {
		name    string
		stdout  string
		err     error
		format  media.Format
		wantErr bool
	}{
		{"video ok", videoProbe, nil, media.FormatMP4, false},
		{"mp3 ok", audioOnly, nil, media.FormatMP3, false},
		{"video missing", audioOnly, nil, media.FormatWebM, true},
		{"no streams", `{"streams":[],"format":{}}`, nil, media.FormatMP3, true},
		{"probe fails", "", errors.New("exit 1"), media.FormatMP4, true},
		{"garbage", "not json", nil, media.FormatMP4, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New("ffprobe", WithExecutor(&stubExecutor{stdout: tc.stdout, err: tc.err}))
			err := p.Verify(context.Background(), "/w/output", tc.format)
			if tc.wantErr {
				if !errors.Is(err, services.ErrExternalTool) {
					t.Fatalf("expected external tool error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify returned error: %v", err)
			}
		})
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}
