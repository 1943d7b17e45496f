package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrExternalTool    = errors.New("external tool error")
	ErrArtifactMissing = errors.New("artifact missing")
	ErrCleanup         = errors.New("cleanup failure")
	ErrNotFound        = errors.New("not found")
	ErrCancelled       = errors.New("cancelled")
	ErrTimeout         = errors.New("timeout")
)

// Client-facing messages. Streamed clients only ever see one of these, never
// the wrapped tool detail.
const (
	MessageDownloadFailed   = "yt-dlp failed to download video"
	MessageArtifactMissing  = "Downloaded video not found"
	MessageProcessingFailed = "FFmpeg processing failed"
	MessageMissingParams    = "Missing parameters"
	MessageFileNotFound     = "File not found"
	MessageCancelled        = "Processing cancelled"
	MessageTimeout          = "Processing timed out"
	MessageInternal         = "Internal error"
)

// StageError tags a failure with the pipeline stage it happened in and one of
// the exported sentinel markers.
type StageError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *StageError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrExternalTool
	}
	return &StageError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// StageOf returns the stage of the outermost StageError in err's chain.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// ClientMessage maps a pipeline failure to the single message reported on the
// event stream. Stage names decide which tool failed.
func ClientMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return MessageCancelled
	case errors.Is(err, ErrTimeout):
		return MessageTimeout
	case errors.Is(err, ErrArtifactMissing):
		return MessageArtifactMissing
	case errors.Is(err, ErrValidation):
		return validationMessage(err)
	case errors.Is(err, ErrExternalTool):
		if StageOf(err) == StageDownload {
			return MessageDownloadFailed
		}
		return MessageProcessingFailed
	default:
		return MessageInternal
	}
}

// Stage names used in wrapped errors and log fields.
const (
	StageValidate  = "validate"
	StageDownload  = "download"
	StageTranscode = "transcode"
	StageFinalize  = "finalize"
	StageDelivery  = "delivery"
	StageInfo      = "info"
)

func validationMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	return MessageMissingParams
}

// ValidationError carries the message shown to the client for a rejected
// request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid returns a validation error for field tagged with ErrValidation.
func Invalid(field, message string) error {
	return Wrap(ErrValidation, StageValidate, field, "", &ValidationError{Field: field, Message: message})
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
