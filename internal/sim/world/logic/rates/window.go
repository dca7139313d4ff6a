// Package rates implements fixed-window rate limiting over a monotonic
// counter (ticks or milliseconds).
package rates

// Window counts events in the current fixed window.
type Window struct {
	Start uint64
	Count int
}

// Allow records one event at now and reports whether it fits in a window of
// the given length holding at most max events. When it does not, cooldown is
// the time left until the window resets. A zero window or non-positive max
// disables limiting.
func (w *Window) Allow(now, window uint64, max int) (ok bool, cooldown uint64) {
	if window == 0 || max <= 0 {
		return true, 0
	}
	if now < w.Start || now-w.Start >= window {
		w.Start = now
		w.Count = 0
	}
	w.Count++
	if w.Count <= max {
		return true, 0
	}
	return false, (w.Start + window) - now
}
