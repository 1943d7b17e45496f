package history

import "time"

// Record is one pipeline run as persisted in the ledger.
type Record struct {
	RunID        string
	SourceURL    string
	Format       string
	Quality      string
	RangeStart   int
	RangeEnd     *int
	State        string
	ErrorMessage string
	OutputBytes  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   time.Time
	DeliveredAt  time.Time
}

// Finished reports whether the run reached a terminal state.
func (r Record) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Delivered reports whether the artifact was downloaded.
func (r Record) Delivered() bool {
	return !r.DeliveredAt.IsZero()
}

// Duration is the wall time from creation to finish, or zero while running.
func (r Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}

// InterruptedState marks runs that were in flight when the process stopped.
const InterruptedState = "interrupted"
