package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ytclip/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcode", "trim", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcode", "trim", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClientMessageMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"download", services.Wrap(services.ErrExternalTool, services.StageDownload, "yt-dlp", "exit status 1", nil), services.MessageDownloadFailed},
		{"wrapped download", fmt.Errorf("run abc: %w", services.Wrap(services.ErrExternalTool, services.StageDownload, "yt-dlp", "", errors.New("exit 1"))), services.MessageDownloadFailed},
		{"download detail in message only", services.Wrap(services.ErrExternalTool, services.StageTranscode, "ffmpeg", "download: retry", nil), services.MessageProcessingFailed},
		{"transcode", services.Wrap(services.ErrExternalTool, services.StageTranscode, "ffmpeg", "exit status 1", nil), services.MessageProcessingFailed},
		{"missing", services.Wrap(services.ErrArtifactMissing, services.StageFinalize, "locate input", "", nil), services.MessageArtifactMissing},
		{"cancelled", services.Wrap(services.ErrCancelled, services.StageDownload, "yt-dlp", "", context.Canceled), services.MessageCancelled},
		{"timeout", services.Wrap(services.ErrTimeout, services.StageTranscode, "ffmpeg", "", nil), services.MessageTimeout},
		{"validation", services.Invalid("format", "Unsupported format"), "Unsupported format"},
		{"bare validation", services.Wrap(services.ErrValidation, "", "", "", nil), services.MessageMissingParams},
		{"unknown", errors.New("disk on fire"), services.MessageInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ClientMessage(tc.err); got != tc.want {
				t.Fatalf("ClientMessage = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInvalidCarriesField(t *testing.T) {
	err := services.Invalid("startTime", "Invalid start time")
	var ve *services.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError in chain, got %v", err)
	}
	if ve.Field != "startTime" {
		t.Fatalf("unexpected field %q", ve.Field)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
}

func TestStageOf(t *testing.T) {
	inner := services.Wrap(services.ErrExternalTool, services.StageDownload, "yt-dlp", "", nil)
	outer := services.Wrap(services.ErrCancelled, services.StageTranscode, "ffmpeg", "", inner)
	if got := services.StageOf(outer); got != services.StageTranscode {
		t.Fatalf("StageOf(outer) = %q", got)
	}
	if got := services.StageOf(fmt.Errorf("ctx: %w", inner)); got != services.StageDownload {
		t.Fatalf("StageOf(wrapped) = %q", got)
	}
	if got := services.StageOf(errors.New("plain")); got != "" {
		t.Fatalf("StageOf(plain) = %q", got)
	}
	if !errors.Is(outer, services.ErrExternalTool) || !errors.Is(outer, services.ErrCancelled) {
		t.Fatal("expected both markers reachable")
	}
}
