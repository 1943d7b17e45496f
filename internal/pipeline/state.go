package pipeline

import (
	"context"
	"errors"

	"ytclip/internal/services"
)

// State is a pipeline run's position in the state machine.
type State string

const (
	StateIdle             State = "idle"
	StateRejected         State = "rejected"
	StateDownloading      State = "downloading"
	StateDownloadFailed   State = "download_failed"
	StateDownloadOK       State = "download_ok"
	StateExtracting       State = "extracting"
	StateRenaming         State = "renaming"
	StateTrimming         State = "trimming"
	StateProcessingFailed State = "processing_failed"
	StateDone             State = "done"
	StateCancelled        State = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateDownloadFailed, StateProcessingFailed, StateDone, StateCancelled:
		return true
	default:
		return false
	}
}

// Failed reports whether the run ended without an artifact.
func (s State) Failed() bool {
	return s.Terminal() && s != StateDone
}

func (s State) String() string { return string(s) }

// Transition returns the state that follows s once its step finished with err.
// Terminal states never move.
func Transition(s State, plan Plan, err error) State {
	if s.Terminal() {
		return s
	}
	cancelled := isCancelled(err)
	switch s {
	case StateIdle:
		switch {
		case err == nil:
			return StateDownloading
		case errors.Is(err, services.ErrValidation):
			return StateRejected
		case cancelled:
			return StateCancelled
		default:
			return StateDownloadFailed
		}
	case StateDownloading:
		switch {
		case err == nil:
			return StateDownloadOK
		case cancelled:
			return StateCancelled
		default:
			return StateDownloadFailed
		}
	case StateDownloadOK:
		if err != nil {
			if cancelled {
				return StateCancelled
			}
			return StateDownloadFailed
		}
		switch plan {
		case PlanExtract:
			return StateExtracting
		case PlanTrim:
			return StateTrimming
		default:
			return StateRenaming
		}
	case StateExtracting, StateRenaming, StateTrimming:
		switch {
		case err == nil:
			return StateDone
		case cancelled:
			return StateCancelled
		default:
			return StateProcessingFailed
		}
	}
	return s
}

func isCancelled(err error) bool {
	return err != nil && (errors.Is(err, services.ErrCancelled) || errors.Is(err, context.Canceled))
}
