package detection

import "sync"

// Readout is the single on-screen similarity slot shared by the polling loop
// and the manual preview. Writers take a ticket with Issue before calling the
// verifier and publish with it afterwards; a result is applied only if no
// later-issued call has already published, so a slow old call cannot
// overwrite a newer one.
type Readout struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	percent *float64
}

// Issue reserves a ticket for a verification call about to start.
func (r *Readout) Issue() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

// Publish stores v (nil clears the slot) if seq is newer than the last
// applied ticket. It reports whether the value was applied.
func (r *Readout) Publish(seq uint64, v *float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq <= r.applied {
		return false
	}
	r.applied = seq
	if v == nil {
		r.percent = nil
		return true
	}
	cp := *v
	r.percent = &cp
	return true
}

// Clear empties the slot and voids every ticket issued so far.
func (r *Readout) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = r.issued
	r.percent = nil
}

// Percent returns a copy of the current value, or nil.
func (r *Readout) Percent() *float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.percent == nil {
		return nil
	}
	cp := *r.percent
	return &cp
}
