package progress

import (
	"fmt"
	"time"

	"ytclip/internal/services"
)

// Tracker folds parsed events for one run into monotonic phase percentages.
// It is not safe for concurrent use; the orchestrator owns one per run.
type Tracker struct {
	subPhases      int
	completed      int
	inSubPhase     bool
	seenProgress   bool
	lastDownload   float64
	transcodeTotal time.Duration
	lastTranscode  float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker) error

// WithTranscodeDuration enables the transcode phase. The duration is the
// length of the requested clip and must be positive.
func WithTranscodeDuration(d time.Duration) TrackerOption {
	return func(t *Tracker) error {
		if d <= 0 {
			return services.Wrap(services.ErrValidation, services.StageTranscode, "tracker", fmt.Sprintf("non-positive clip duration %s", d), nil)
		}
		t.transcodeTotal = d
		return nil
	}
}

// NewTracker returns a tracker expecting subPhases download streams.
func NewTracker(subPhases int, opts ...TrackerOption) (*Tracker, error) {
	if subPhases < 1 {
		subPhases = 1
	}
	t := &Tracker{subPhases: subPhases, lastDownload: -1, lastTranscode: -1}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// SubPhases reports the number of download streams currently expected.
func (t *Tracker) SubPhases() int { return t.subPhases }

// CompletedSubPhases reports how many download streams have finished.
func (t *Tracker) CompletedSubPhases() int { return t.completed }

// Download consumes a downloader event and returns the overall download
// percentage when it advances past the last emitted value.
func (t *Tracker) Download(ev Event) (float64, bool) {
	switch ev.Kind {
	case KindFormats:
		if ev.Formats > 0 && !t.seenProgress {
			t.subPhases = ev.Formats
		}
		return 0, false
	case KindDestination:
		if t.inSubPhase {
			t.completeSubPhase()
		}
		t.inSubPhase = true
		return 0, false
	case KindPercent:
		return t.downloadPercent(ev)
	default:
		return 0, false
	}
}

func (t *Tracker) downloadPercent(ev Event) (float64, bool) {
	raw := clamp(ev.Percent)
	if ev.HasFragment() {
		frags := float64(ev.Fragments)
		raw = clamp(float64(ev.Fragment-1)/frags*100 + raw/frags)
	}
	finished := !ev.HasFragment() && raw >= 100
	if !t.inSubPhase && !t.seenProgress && finished {
		// Metadata-only steps print 100% before any real transfer.
		return 0, false
	}
	t.inSubPhase = true
	t.seenProgress = true

	total := float64(t.subPhases)
	overall := clamp(float64(t.completed)/total*100 + raw/total)
	if finished {
		t.completeSubPhase()
	}
	if overall <= t.lastDownload {
		return 0, false
	}
	t.lastDownload = overall
	return overall, true
}

func (t *Tracker) completeSubPhase() {
	t.inSubPhase = false
	if t.completed < t.subPhases {
		t.completed++
	}
}

// Transcode consumes a transcoder event and returns the clip percentage when
// it advances past the last emitted value.
func (t *Tracker) Transcode(ev Event) (float64, bool) {
	if ev.Kind != KindElapsed || t.transcodeTotal <= 0 {
		return 0, false
	}
	pct := clamp(float64(ev.Elapsed) / float64(t.transcodeTotal) * 100)
	if pct <= t.lastTranscode {
		return 0, false
	}
	t.lastTranscode = pct
	return pct, true
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
