// Package outage tracks planned power outage windows published by the grid
// operator and decides when a print must pause ahead of them.
package outage

import (
	"fmt"
	"math"
	"time"
)

// Window is one planned outage, in fractional hours since local midnight.
// The feed publishes minutes after midnight; 1170 becomes 19.5.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Label renders the window as "HH:MM-HH:MM" for logs and operators.
func (w Window) Label() string {
	return clock(w.Start) + "-" + clock(w.End)
}

func clock(h float64) string {
	m := int(math.Round(h * 60))
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Schedule is the definite outage windows for the published days.
type Schedule struct {
	Today     []Window  `json:"today"`
	Tomorrow  []Window  `json:"tomorrow"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Current returns the windows in effect for now. From 23:00 the feed's
// "tomorrow" table is consulted, since the published day rolls over before
// the clock does.
func (s Schedule) Current(now time.Time) []Window {
	if now.Hour() == 23 {
		return s.Tomorrow
	}
	return s.Today
}

// Check is the pause decision for one evaluation tick.
type Check struct {
	// Due means the print should pause now: the pause point is at most a
	// minute away, or the window has already begun.
	Due    bool
	Window Window
	// Until is the time left to the pause point, or to the window end
	// once inside the window. Zero when nothing is upcoming.
	Until time.Duration
}

// Evaluate inspects windows in feed order and decides whether a pause is
// due at now. The pause point of a window sits waitBefore ahead of its
// start. Windows already over are skipped; the first upcoming window
// settles the answer.
func Evaluate(windows []Window, now time.Time, waitBefore time.Duration) Check {
	current := float64(now.Hour()) + float64(now.Minute())/60

	for _, w := range windows {
		pausePoint := w.Start - waitBefore.Hours()
		switch {
		case current < pausePoint:
			untilPause := time.Duration((pausePoint - current) * float64(time.Hour))
			if untilPause <= time.Minute {
				return Check{Due: true, Window: w, Until: untilPause}
			}
			return Check{}
		case current < w.End:
			untilEnd := time.Duration((w.End - current) * float64(time.Hour))
			return Check{Due: true, Window: w, Until: untilEnd}
		}
	}
	return Check{}
}
