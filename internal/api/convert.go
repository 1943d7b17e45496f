package api

import (
	"time"

	"ytclip/internal/deps"
	"ytclip/internal/history"
	"ytclip/internal/preflight"
	"ytclip/internal/services/youtube"
	"ytclip/internal/timecode"
)

// FromRecord converts a history record to its API representation.
func FromRecord(rec history.Record) RunView {
	view := RunView{
		RunID:        rec.RunID,
		SourceURL:    rec.SourceURL,
		Format:       rec.Format,
		Quality:      rec.Quality,
		StartTime:    timecode.Format(rec.RangeStart),
		State:        rec.State,
		ErrorMessage: rec.ErrorMessage,
		OutputBytes:  rec.OutputBytes,
		Delivered:    rec.Delivered(),
		CreatedAt:    formatTime(rec.CreatedAt),
		FinishedAt:   formatTime(rec.FinishedAt),
		DeliveredAt:  formatTime(rec.DeliveredAt),
		DurationMS:   rec.Duration().Milliseconds(),
	}
	if rec.RangeEnd != nil {
		view.EndTime = timecode.Format(*rec.RangeEnd)
	}
	return view
}

// FromRecords converts a slice of records, preserving order.
func FromRecords(records []history.Record) []RunView {
	views := make([]RunView, 0, len(records))
	for _, rec := range records {
		views = append(views, FromRecord(rec))
	}
	return views
}

// FromDependencies converts tool availability results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Version:     dep.Version,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromDirectories converts directory preflight results.
func FromDirectories(results []preflight.Result) []DirectoryCheck {
	out := make([]DirectoryCheck, len(results))
	for i, r := range results {
		out[i] = DirectoryCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}

// FromInfo converts looked-up video metadata.
func FromInfo(info youtube.Info) VideoInfo {
	seconds := int(info.Duration / time.Second)
	qualities := info.Qualities
	if qualities == nil {
		qualities = []string{}
	}
	return VideoInfo{
		ID:              info.ID,
		Title:           info.Title,
		Author:          info.Author,
		DurationSeconds: seconds,
		Duration:        timecode.Format(seconds),
		Qualities:       qualities,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
