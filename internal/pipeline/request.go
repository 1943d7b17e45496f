package pipeline

import (
	"strings"

	"ytclip/internal/media"
	"ytclip/internal/services"
	"ytclip/internal/services/youtube"
	"ytclip/internal/timecode"
)

// Submission is the JSON body accepted by POST /api/download. Pointers
// distinguish absent fields from empty ones.
type Submission struct {
	VideoURL  *string `json:"videoUrl"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime,omitempty"`
	Format    *string `json:"format"`
	Quality   *string `json:"quality"`
}

// Request is an accepted download request. It is not modified after Validate succeeds.
type Request struct {
	SourceURL  string
	RangeStart int
	// RangeEnd selects the two-phase trim pipeline when set.
	RangeEnd *int
	Format   media.Format
	Quality  string
}

// ParseSubmission converts a client submission into a validated Request.
// Errors wrap services.ErrValidation and carry the client-facing message.
func ParseSubmission(s Submission) (Request, error) {
	if blank(s.VideoURL) || s.StartTime == nil || blank(s.StartTime) || blank(s.Format) || blank(s.Quality) {
		return Request{}, services.Invalid("", services.MessageMissingParams)
	}
	format, err := media.ParseFormat(*s.Format)
	if err != nil {
		return Request{}, services.Invalid("format", "Unsupported format")
	}
	start, err := timecode.ToSeconds(*s.StartTime)
	if err != nil {
		return Request{}, services.Invalid("startTime", "Invalid start time")
	}
	req := Request{
		SourceURL:  strings.TrimSpace(*s.VideoURL),
		RangeStart: start,
		Format:     format,
		Quality:    strings.TrimSpace(*s.Quality),
	}
	if !blank(s.EndTime) {
		end, err := timecode.ToSeconds(*s.EndTime)
		if err != nil {
			return Request{}, services.Invalid("endTime", "Invalid end time")
		}
		req.RangeEnd = &end
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

// TwoPhase reports whether progress labels carry the "1/2" and "2/2"
// prefixes. Any range end does, even for audio where no cut follows.
func (r Request) TwoPhase() bool { return r.RangeEnd != nil }

// Validate enforces the entry rules. It never starts a process.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SourceURL) == "" || strings.TrimSpace(r.Quality) == "" {
		return services.Invalid("", services.MessageMissingParams)
	}
	if !r.Format.Valid() {
		return services.Invalid("format", "Unsupported format")
	}
	if _, err := youtube.ValidateURL(r.SourceURL); err != nil {
		return services.Invalid("videoUrl", "Invalid video URL")
	}
	if r.RangeStart < 0 {
		return services.Invalid("startTime", "Invalid start time")
	}
	if r.RangeEnd != nil && *r.RangeEnd <= r.RangeStart {
		return services.Invalid("endTime", "End time must be after start time")
	}
	return nil
}

// Plan is the post-download step a request needs.
type Plan int

const (
	// PlanRename moves the downloaded file into the output slot.
	PlanRename Plan = iota
	// PlanExtract converts the download to mp3. Ranges are ignored.
	PlanExtract
	// PlanTrim cuts and re-encodes the requested range.
	PlanTrim
)

func (p Plan) String() string {
	switch p {
	case PlanExtract:
		return "extract"
	case PlanTrim:
		return "trim"
	default:
		return "rename"
	}
}


// PlanFor chooses the plan for req.
func PlanFor(req Request) Plan {
	switch {
	case req.Format.AudioOnly():
		return PlanExtract
	case req.RangeEnd == nil:
		return PlanRename
	default:
		return PlanTrim
	}
}
