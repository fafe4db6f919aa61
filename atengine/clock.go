package atengine

import "time"

// Clock abstracts the monotonic clock and sleep primitive the distilled
// spec names in §6 (monotonic_ms/sleep_ms) behind the standard library's
// own notion of time, so tests can substitute a fake without races.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
