package capture

import "sync/atomic"

// Generation is a monotonically increasing session token. It is bumped on
// close, retake and device switch; any asynchronous result tagged with an
// older value is void. The zero value is ready to use.
type Generation struct{ n atomic.Uint64 }

// Current returns the live generation.
func (g *Generation) Current() uint64 {
	if g == nil {
		return 0
	}
	return g.n.Load()
}

// Bump invalidates every outstanding result and returns the new generation.
func (g *Generation) Bump() uint64 {
	if g == nil {
		return 0
	}
	return g.n.Add(1)
}

// Live reports whether a result tagged with gen may still be applied.
func (g *Generation) Live(gen uint64) bool { return g.Current() == gen }
