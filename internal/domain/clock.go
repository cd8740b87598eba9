package domain

import "github.com/jonboulle/clockwork"

// clock is the package-level time source used when an event time cannot be
// parsed and ParseEventTime must fall back to "now". Tests freeze it via
// SetClock to make the fallback deterministic.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
