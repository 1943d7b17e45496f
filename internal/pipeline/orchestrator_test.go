package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytclip/internal/artifact"
	"ytclip/internal/history"
	"ytclip/internal/media"
	"ytclip/internal/pipeline"
	"ytclip/internal/services"
	"ytclip/internal/services/ffmpeg"
	"ytclip/internal/services/ytdlp"
)

const testRunID = "3e0c9a4b-2f1d-4c8e-9b7a-5d6e4f3a2b1c"

type recordingStream struct {
	events []pipeline.Event
	closes int
}

func (s *recordingStream) Send(event any) error {
	s.events = append(s.events, event.(pipeline.Event))
	return nil
}

func (s *recordingStream) Close() error {
	s.closes++
	return nil
}

func (s *recordingStream) progress() []string {
	var labels []string
	for _, ev := range s.events {
		if ev.Progress != "" {
			labels = append(labels, ev.Progress)
		}
	}
	return labels
}

func (s *recordingStream) last() pipeline.Event {
	if len(s.events) == 0 {
		return pipeline.Event{}
	}
	return s.events[len(s.events)-1]
}

type stubDownloader struct {
	lines []string
	ext   string
	err   error
	calls int
	req   ytdlp.Request
}

func (d *stubDownloader) Download(ctx context.Context, req ytdlp.Request, onLine, onDiag func(string)) error {
	d.calls++
	d.req = req
	for _, line := range d.lines {
		onLine(line)
	}
	if d.err != nil {
		return d.err
	}
	if d.ext != "" {
		path := strings.Replace(req.OutputTemplate, "%(ext)s", d.ext, 1)
		if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
			return err
		}
	}
	return ctx.Err()
}

type stubTranscoder struct {
	progress []string
	err      error
	extracts int
	trims    int
	clip     ffmpeg.Clip
	format   media.Format
}

func (t *stubTranscoder) ExtractAudio(_ context.Context, _, output string, _ func(string)) error {
	t.extracts++
	if t.err != nil {
		return t.err
	}
	return os.WriteFile(output, []byte("mp3-bytes"), 0o644)
}

func (t *stubTranscoder) Trim(_ context.Context, _, output string, clip ffmpeg.Clip, format media.Format, onProgress, _ func(string)) error {
	t.trims++
	t.clip = clip
	t.format = format
	for _, line := range t.progress {
		onProgress(line)
	}
	if t.err != nil {
		return t.err
	}
	return os.WriteFile(output, []byte("clip"), 0o644)
}

type memoryRecorder struct {
	started  []history.Record
	states   []string
	finished map[string]string
}

func (m *memoryRecorder) Start(_ context.Context, rec history.Record) error {
	m.started = append(m.started, rec)
	return nil
}

func (m *memoryRecorder) UpdateState(_ context.Context, _ string, state string) error {
	m.states = append(m.states, state)
	return nil
}

func (m *memoryRecorder) Finish(_ context.Context, runID, state, _ string, _ int64) error {
	if m.finished == nil {
		m.finished = map[string]string{}
	}
	m.finished[runID] = state
	return nil
}

func newOrchestrator(t *testing.T, dl pipeline.Downloader, tc pipeline.Transcoder, opts ...pipeline.Option) (*pipeline.Orchestrator, *artifact.Workspace) {
	t.Helper()
	ws := artifact.NewWorkspace(t.TempDir(), nil)
	opts = append(opts, pipeline.WithIDGenerator(func() string { return testRunID }))
	o, err := pipeline.New(dl, tc, ws, nil, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return o, ws
}

func intPtr(v int) *int { return &v }

func TestRunExtractsAudio(t *testing.T) {
	dl := &stubDownloader{
		ext: "webm",
		lines: []string{
			"[youtube] dQw4w9WgXcQ: Downloading webpage",
			"[download] Destination: input.webm",
			"[download]  50.0% of 3.00MiB at 1.00MiB/s ETA 00:01",
			"[download] 100% of 3.00MiB in 00:02",
		},
	}
	tc := &stubTranscoder{}
	rec := &memoryRecorder{}
	o, ws := newOrchestrator(t, dl, tc, pipeline.WithRecorder(rec))
	stream := &recordingStream{}

	result := o.Run(context.Background(), pipeline.Request{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:    media.FormatMP3,
		Quality:   "720p",
	}, stream)

	if result.State != pipeline.StateDone || result.Err != nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if dl.req.Format != media.FormatMP3 || ytdlp.FormatSelector(dl.req.Format, dl.req.Quality) != "bestaudio/best" {
		t.Fatalf("unexpected download request %+v", dl.req)
	}
	if tc.extracts != 1 || tc.trims != 0 {
		t.Fatalf("expected one extraction, got extracts=%d trims=%d", tc.extracts, tc.trims)
	}
	if stream.closes != 1 {
		t.Fatalf("expected stream closed once, got %d", stream.closes)
	}
	final := stream.last()
	if final.Progress != "Processing complete!" || final.DownloadURL != "/api/file/mp3?run="+testRunID {
		t.Fatalf("unexpected completion %+v", final)
	}
	want := []string{"Downloading 50.00%...", "Downloading 100.00%...", "Download complete, processing...", "Processing complete!"}
	if got := stream.progress(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("progress = %q, want %q", got, want)
	}
	entries, _ := os.ReadDir(ws.RunDir(testRunID))
	if len(entries) != 1 || entries[0].Name() != "output.mp3" {
		t.Fatalf("expected only output.mp3 left, got %v", entries)
	}
	if ws.Active(testRunID) {
		t.Fatal("expected run released")
	}
	if rec.finished[testRunID] != string(pipeline.StateDone) || len(rec.started) != 1 {
		t.Fatalf("unexpected history %+v", rec)
	}
}

func TestRunExtractAudioWithRangeKeepsFirstPhasePrefix(t *testing.T) {
	dl := &stubDownloader{
		ext: "m4a",
		lines: []string{
			"[download] Destination: input.m4a",
			"[download]  40.0% of 3.00MiB at 1.00MiB/s ETA 00:01",
			"[download] 100% of 3.00MiB in 00:02",
		},
	}
	tc := &stubTranscoder{}
	o, _ := newOrchestrator(t, dl, tc)
	stream := &recordingStream{}

	result := o.Run(context.Background(), pipeline.Request{
		SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
		RangeStart: 10,
		RangeEnd:   intPtr(40),
		Format:     media.FormatMP3,
		Quality:    "best",
	}, stream)

	if result.State != pipeline.StateDone {
		t.Fatalf("unexpected result %+v", result)
	}
	if tc.extracts != 1 || tc.trims != 0 {
		t.Fatalf("expected extraction only, got extracts=%d trims=%d", tc.extracts, tc.trims)
	}
	want := []string{"1/2 - Downloading 40.00%...", "1/2 - Downloading 100.00%...", "1/2 - Download complete, processing...", "Processing complete!"}
	if got := stream.progress(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("progress = %q, want %q", got, want)
	}
	terminal := 0
	for _, ev := range stream.events {
		if ev.Terminal() {
			terminal++
		}
	}
	if terminal != 1 || !stream.last().Terminal() {
		t.Fatalf("expected exactly one trailing terminal event, got %d", terminal)
	}
}

func TestRunTrimsWithTwoPhaseLabels(t *testing.T) {
	dl := &stubDownloader{
		ext: "mp4",
		lines: []string{
			"[info] dQw4w9WgXcQ: Downloading 1 format(s): 137+140",
			"[download] Destination: input.f137.mp4",
			"[download] 100% of 10.00MiB in 00:03",
			"[download] Destination: input.f140.m4a",
			"[download] 100% of 1.00MiB in 00:01",
			"[Merger] Merging formats into \"input.mp4\"",
		},
	}
	tc := &stubTranscoder{progress: []string{
		"frame=10",
		"out_time_ms=15000000",
		"progress=continue",
		"out_time_ms=15000000",
		"out_time_ms=60000000",
		"progress=end",
	}}
	o, ws := newOrchestrator(t, dl, tc)
	stream := &recordingStream{}

	result := o.Run(context.Background(), pipeline.Request{
		SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
		RangeStart: 30,
		RangeEnd:   intPtr(90),
		Format:     media.FormatMP4,
		Quality:    "1080p",
	}, stream)

	if result.State != pipeline.StateDone {
		t.Fatalf("unexpected result %+v", result)
	}
	if tc.trims != 1 || tc.clip != (ffmpeg.Clip{Start: 30, End: 90}) || tc.format != media.FormatMP4 {
		t.Fatalf("unexpected trim call %+v", tc)
	}
	want := []string{
		"1/2 - Downloading 50.00%...",
		"1/2 - Downloading 100.00%...",
		"1/2 - Finishing...",
		"1/2 - Download complete, processing...",
		"Preparing to cut the video...",
		"2/2 - Cutting 25.00%...",
		"2/2 - Cutting 100.00%...",
		"Complete",
		"Processing complete!",
	}
	if got := stream.progress(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("progress = %q, want %q", got, want)
	}
	if stream.last().DownloadURL == "" || stream.closes != 1 {
		t.Fatalf("expected completion then close, got %+v closes=%d", stream.last(), stream.closes)
	}
	if _, err := os.Stat(filepath.Join(ws.RunDir(testRunID), "input.mp4")); !os.IsNotExist(err) {
		t.Fatal("expected input deleted")
	}
	if result.OutputBytes != int64(len("clip")) {
		t.Fatalf("unexpected output size %d", result.OutputBytes)
	}
}

func TestRunRenamesWithoutRange(t *testing.T) {
	dl := &stubDownloader{ext: "webm"}
	o, ws := newOrchestrator(t, dl, &stubTranscoder{})
	stream := &recordingStream{}

	result := o.Run(context.Background(), pipeline.Request{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:    media.FormatWebM,
		Quality:   "best",
	}, stream)

	if result.State != pipeline.StateDone {
		t.Fatalf("unexpected result %+v", result)
	}
	if final := stream.last(); final.Progress != "Download complete" || final.DownloadURL != "/api/file/webm?run="+testRunID {
		t.Fatalf("unexpected completion %+v", final)
	}
	if _, err := os.Stat(ws.OutputPath(testRunID, media.FormatWebM)); err != nil {
		t.Fatalf("expected output present: %v", err)
	}
}

func TestRunDownloadFailure(t *testing.T) {
	dl := &stubDownloader{err: errors.New("exit status 1"), lines: []string{"[download]  10.0% of 1MiB"}}
	tc := &stubTranscoder{}
	rec := &memoryRecorder{}
	o, ws := newOrchestrator(t, dl, tc, pipeline.WithRecorder(rec))
	stream := &recordingStream{}

	result := o.Run(context.Background(), pipeline.Request{
		SourceURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		RangeStart: 0,
		RangeEnd:   intPtr(10),
		Format:     media.FormatMP4,
		Quality:    "720p",
	}, stream)

	if result.State != pipeline.StateDownloadFailed {
		t.Fatalf("expected download_failed, got %s", result.State)
	}
	var errorsSeen int
	for _, ev := range stream.events {
		if ev.Error != "" {
			errorsSeen++
			if ev.Error != services.MessageDownloadFailed {
				t.Fatalf("unexpected error message %q", ev.Error)
			}
		}
	}
	if errorsSeen != 1 || stream.last().Error == "" {
		t.Fatalf("expected exactly one trailing error event, got %+v", stream.events)
	}
	if tc.trims != 0 || tc.extracts != 0 {
		t.Fatal("transcoder must not run after download failure")
	}
	if stream.closes != 1 {
		t.Fatalf("expected stream closed once, got %d", stream.closes)
	}
	if _, err := os.Stat(ws.RunDir(testRunID)); !os.IsNotExist(err) {
		t.Fatal("expected run directory removed")
	}
	if rec.finished[testRunID] != string(pipeline.StateDownloadFailed) {
		t.Fatalf("unexpected history %+v", rec.finished)
	}
}

func TestRunMissingInput(t *testing.T) {
	o, _ := newOrchestrator(t, &stubDownloader{}, &stubTranscoder{})
	stream := &recordingStream{}
	result := o.Run(context.Background(), pipeline.Request{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:    media.FormatMP4,
		Quality:   "720p",
	}, stream)
	if result.State != pipeline.StateDownloadFailed {
		t.Fatalf("unexpected state %s", result.State)
	}
	if got := stream.last().Error; got != services.MessageArtifactMissing {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestRunProcessingFailure(t *testing.T) {
	tc := &stubTranscoder{err: errors.New("exit status 1")}
	o, _ := newOrchestrator(t, &stubDownloader{ext: "m4a"}, tc)
	stream := &recordingStream{}
	result := o.Run(context.Background(), pipeline.Request{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:    media.FormatMP3,
		Quality:   "best",
	}, stream)
	if result.State != pipeline.StateProcessingFailed {
		t.Fatalf("unexpected state %s", result.State)
	}
	if got := stream.last().Error; got != services.MessageProcessingFailed {
		t.Fatalf("unexpected error %q", got)
	}
}

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, string, media.Format) error {
	return services.Wrap(services.ErrExternalTool, services.StageFinalize, "verify output", "output has no streams", nil)
}

func TestRunVerificationFailure(t *testing.T) {
	o, _ := newOrchestrator(t, &stubDownloader{ext: "m4a"}, &stubTranscoder{}, pipeline.WithVerifier(failingVerifier{}))
	stream := &recordingStream{}
	result := o.Run(context.Background(), pipeline.Request{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:    media.FormatMP3,
		Quality:   "best",
	}, stream)
	if result.State != pipeline.StateProcessingFailed || stream.last().Error != services.MessageProcessingFailed {
		t.Fatalf("unexpected result %+v last=%+v", result, stream.last())
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	dl := &stubDownloader{}
	rec := &memoryRecorder{}
	o, ws := newOrchestrator(t, dl, &stubTranscoder{}, pipeline.WithRecorder(rec))
	stream := &recordingStream{}
	result := o.Run(context.Background(), pipeline.Request{
		SourceURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		RangeStart: 60,
		RangeEnd:   intPtr(30),
		Format:     media.FormatMP4,
		Quality:    "720p",
	}, stream)
	if result.State != pipeline.StateRejected {
		t.Fatalf("expected rejected, got %s", result.State)
	}
	if dl.calls != 0 {
		t.Fatal("downloader must not run for rejected request")
	}
	if len(stream.events) != 1 || stream.events[0].Error == "" || stream.closes != 1 {
		t.Fatalf("unexpected events %+v closes=%d", stream.events, stream.closes)
	}
	if len(rec.started) != 0 {
		t.Fatal("rejected runs are not recorded")
	}
	if _, err := os.Stat(ws.RunDir(testRunID)); !os.IsNotExist(err) {
		t.Fatal("rejected run must not create a directory")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, ws := newOrchestrator(t, &stubDownloader{ext: "webm"}, &stubTranscoder{})
	stream := &recordingStream{}
	result := o.Run(ctx, pipeline.Request{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:    media.FormatWebM,
		Quality:   "720p",
	}, stream)
	if result.State != pipeline.StateCancelled {
		t.Fatalf("expected cancelled, got %s", result.State)
	}
	if stream.last().Error != services.MessageCancelled || stream.closes != 1 {
		t.Fatalf("unexpected stream %+v", stream.events)
	}
	if _, err := os.Stat(ws.RunDir(testRunID)); !os.IsNotExist(err) {
		t.Fatal("expected run directory removed")
	}
}
