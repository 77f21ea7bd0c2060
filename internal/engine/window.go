package engine

import (
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WINDOW TRACKER - Per-asset 15-minute market windows
// ═══════════════════════════════════════════════════════════════════════════════
//
// Windows are wall-clock aligned: start = timestamp floored to the window
// duration. Per asset they are contiguous and never overlap. A feed gap makes
// the tracker jump straight to the window containing the next observed
// timestamp; no synthetic catch-up windows are created for the gap.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Window is one fixed-duration market period for a single asset.
type Window struct {
	Start     time.Time
	End       time.Time
	EntryUsed bool
}

// Contains reports whether t falls inside the window [Start, End).
func (w *Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ID returns the window identifier used in trade records, e.g. "20250301_1415".
func (w *Window) ID() string {
	return w.Start.UTC().Format("20060102_1504")
}

// WindowTracker maps each asset to its active window.
type WindowTracker struct {
	duration time.Duration
	windows  map[Asset]*Window
}

func NewWindowTracker(duration time.Duration) *WindowTracker {
	return &WindowTracker{
		duration: duration,
		windows:  make(map[Asset]*Window),
	}
}

// Advance returns the window covering now for asset, rolling over to a new
// window when the active one has elapsed. A timestamp before the active
// window's start is a clock regression and leaves the state unchanged.
func (t *WindowTracker) Advance(asset Asset, now time.Time) (*Window, error) {
	w, ok := t.windows[asset]
	if ok {
		if now.Before(w.Start) {
			return nil, fmt.Errorf("clock regression for %s: %s is before window start %s",
				asset, now.Format(time.RFC3339), w.Start.Format(time.RFC3339))
		}
		if w.Contains(now) {
			return w, nil
		}
	}

	start := now.Truncate(t.duration)
	w = &Window{Start: start, End: start.Add(t.duration)}
	t.windows[asset] = w
	return w, nil
}

// Current returns the active window for asset without advancing it.
func (t *WindowTracker) Current(asset Asset) (*Window, bool) {
	w, ok := t.windows[asset]
	return w, ok
}

// Remaining returns the time left in asset's active window at now.
// Returns zero when no window is active or the window has elapsed.
func (t *WindowTracker) Remaining(asset Asset, now time.Time) time.Duration {
	w, ok := t.windows[asset]
	if !ok || !w.Contains(now) {
		return 0
	}
	return w.End.Sub(now)
}

// MarkEntryUsed consumes the single entry allowance of asset's active window.
func (t *WindowTracker) MarkEntryUsed(asset Asset) {
	if w, ok := t.windows[asset]; ok {
		w.EntryUsed = true
	}
}
