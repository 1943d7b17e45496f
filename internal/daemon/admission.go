package daemon

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	messageBusy        = "Too many downloads in progress, try again later"
	messageRateLimited = "Too many requests, slow down"
)

// admission bounds concurrent runs and the submission rate. Zero values
// disable the respective limit.
type admission struct {
	slots   chan struct{}
	limiter *rate.Limiter
}

func newAdmission(maxRuns, perMinute int) *admission {
	a := &admission{}
	if maxRuns > 0 {
		a.slots = make(chan struct{}, maxRuns)
	}
	if perMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return a
}

// acquire reserves a run slot without blocking. On refusal it returns the
// message for the 429 response.
func (a *admission) acquire() (release func(), message string, ok bool) {
	if a.slots != nil {
		select {
		case a.slots <- struct{}{}:
		default:
			return nil, messageBusy, false
		}
	}
	if a.limiter != nil && !a.limiter.Allow() {
		a.releaseSlot()
		return nil, messageRateLimited, false
	}
	return a.releaseSlot, "", true
}

func (a *admission) releaseSlot() {
	if a.slots != nil {
		<-a.slots
	}
}

// capacity is the configured concurrent run limit, or 0 when unbounded.
func (a *admission) capacity() int {
	return cap(a.slots)
}
