package oyster

import (
	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

type RevisePhase string

const (
	PhaseNone          RevisePhase = "none"
	PhasePending       RevisePhase = "pending"
	PhaseFinalizable   RevisePhase = "finalizable"
	PhaseStopCompleted RevisePhase = "stopCompleted"
)

// ReviseRatePhase derives the revision phase of job at unix time now from the cached
// revision record.
func ReviseRatePhase(job models.Job, now int64) RevisePhase {
	r := job.ReviseRate
	switch {
	case r == nil:
		return PhaseNone
	case r.StopStatus == constants.StopStatusCompleted:
		return PhaseStopCompleted
	case now >= r.UpdatesAt:
		return PhaseFinalizable
	}
	return PhasePending
}

// ReviseTimeLeft is the number of seconds until the revision can be finalized.
func ReviseTimeLeft(job models.Job, now int64) int64 {
	if job.ReviseRate == nil || now >= job.ReviseRate.UpdatesAt {
		return 0
	}
	return job.ReviseRate.UpdatesAt - now
}
