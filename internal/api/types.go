package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunView describes one recorded run.
type RunView struct {
	RunID        string `json:"runId"`
	SourceURL    string `json:"sourceUrl"`
	Format       string `json:"format"`
	Quality      string `json:"quality"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime,omitempty"`
	State        string `json:"state"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	OutputBytes  int64  `json:"outputBytes"`
	Delivered    bool   `json:"delivered"`
	CreatedAt    string `json:"createdAt,omitempty"`
	FinishedAt   string `json:"finishedAt,omitempty"`
	DeliveredAt  string `json:"deliveredAt,omitempty"`
	DurationMS   int64  `json:"durationMs,omitempty"`
}

// RunListResponse wraps recorded runs, newest first.
type RunListResponse struct {
	Runs []RunView `json:"runs"`
}

// DependencyStatus captures availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// DirectoryCheck reports whether a configured directory is usable.
type DirectoryCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// DaemonStatus aggregates runtime information for API consumers.
type DaemonStatus struct {
	Running           bool               `json:"running"`
	PID               int                `json:"pid"`
	Ready             bool               `json:"ready"`
	ActiveRuns        int                `json:"activeRuns"`
	MaxConcurrentRuns int                `json:"maxConcurrentRuns"`
	WorkDir           string             `json:"workDir"`
	HistoryPath       string             `json:"historyPath,omitempty"`
	LockFilePath      string             `json:"lockFilePath"`
	Directories       []DirectoryCheck   `json:"directories"`
	Dependencies      []DependencyStatus `json:"dependencies"`
}

// VideoInfo is the metadata returned by GET /api/info.
type VideoInfo struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	DurationSeconds int      `json:"durationSeconds"`
	Duration        string   `json:"duration"`
	Qualities       []string `json:"qualities"`
}
