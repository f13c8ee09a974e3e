// Package clock abstracts the time source used by the collaboration core.
//
// Lock expiry, live-change visibility and merge latency all depend on "now"
// and on deferred callbacks. Production code uses [Real]; tests use [Fake],
// which only moves when told to and fires due timers synchronously in
// deadline order.
package clock

import "time"

// Clock provides the current time and deferred callbacks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer can cancel
	// the call if it has not happened yet.
	AfterFunc(d time.Duration, f func()) Timer

	// After returns a channel that receives the time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or was already stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
