package clock

import "time"

// Anchor is a process-wide monotonic time base. Both capture sources stamp
// audio against the same anchor so their timelines stay comparable.
type Anchor struct {
	base time.Time
}

func NewAnchor() *Anchor {
	return &Anchor{base: time.Now()}
}

// NowMS returns milliseconds elapsed since the anchor was created. The
// underlying reading is monotonic, so wall-clock adjustments never move it
// backwards.
func (a *Anchor) NowMS() int64 {
	return time.Since(a.base).Milliseconds()
}

// Base returns the wall-clock instant the anchor was created, for
// translating anchor-relative timestamps into absolute times.
func (a *Anchor) Base() time.Time {
	return a.base
}
