package detection

import (
	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/faceapi"
)

// Debouncer turns a stream of verdicts into at most one auto-capture per
// streak of RequiredConsecutiveMatches hits. It is not safe for concurrent
// use; the Loop guards it with its own mutex.
type Debouncer struct {
	threshold   float64
	required    int
	consecutive int
}

// NewDebouncer builds a debouncer for the given policy.
func NewDebouncer(p config.Policy) *Debouncer {
	p = p.Normalized()
	return &Debouncer{threshold: p.MatchThresholdPercent, required: p.RequiredConsecutiveMatches}
}

// IsHit reports whether r counts toward the streak.
func (d *Debouncer) IsHit(r faceapi.Result) bool {
	return r.Detected && r.Verified && r.Percent() >= d.threshold
}

// Feed records r and reports whether the streak just reached the required
// length. The counter restarts from zero after firing, so a face held in
// front of the camera fires again every required hits.
func (d *Debouncer) Feed(r faceapi.Result) bool {
	if !d.IsHit(r) {
		d.consecutive = 0
		return false
	}
	d.consecutive++
	if d.consecutive >= d.required {
		d.consecutive = 0
		return true
	}
	return false
}

// Reset zeroes the streak.
func (d *Debouncer) Reset() { d.consecutive = 0 }

// Consecutive returns the current streak length.
func (d *Debouncer) Consecutive() int { return d.consecutive }
