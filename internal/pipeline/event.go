package pipeline

import "fmt"

// Event is one record on a run's progress stream. Exactly one of Progress or
// Error is set; DownloadURL accompanies the completion event.
type Event struct {
	Progress    string `json:"progress,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Error != "" || e.DownloadURL != ""
}

// Stream receives a run's events. eventstream.Writer satisfies it.
type Stream interface {
	Send(event any) error
	Close() error
}

const (
	prefixFirst  = "1/2 - "
	prefixSecond = "2/2 - "

	labelFinishing        = "Finishing..."
	labelDownloadComplete = "Download complete, processing..."
	labelPreparingCut     = "Preparing to cut the video..."
	labelCutComplete      = "Complete"
	labelProcessed        = "Processing complete!"
	labelRenamed          = "Download complete"
)

func downloadingLabel(prefix string, pct float64) string {
	return fmt.Sprintf("%sDownloading %.2f%%...", prefix, pct)
}

func cuttingLabel(pct float64) string {
	return fmt.Sprintf("%sCutting %.2f%%...", prefixSecond, pct)
}
