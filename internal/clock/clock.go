// Package clock abstracts time for testability. Production code takes
// a Clock and injects Real(); tests inject a Fake and advance it
// deterministically instead of sleeping.
package clock

import "time"

// Clock is the subset of the time package the coordinator and restore
// engine depend on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
