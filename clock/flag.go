package clock

import "time"

// Flag is a settable, sleep-until-set one-shot signal. Set is idempotent and
// never blocks a caller on a waiter. Wait blocks until the flag has been
// set, then atomically clears it. A Flag is always associated with one
// Clock domain, used to translate a deadline (in that Clock's seconds) into
// a sleep duration for WaitUntil.
type Flag struct {
	clock Clock
	ch    chan struct{}
}

// NewFlag returns a new, unset Flag in the given Clock's domain.
func NewFlag(c Clock) *Flag {
	return &Flag{clock: c, ch: make(chan struct{}, 1)}
}

// Set raises the flag. Calling Set when the flag is already set is a no-op:
// Set is idempotent and lock-free relative to any waiter.
func (f *Flag) Set() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the flag is set, then clears it.
func (f *Flag) Wait() { <-f.ch }

// WaitUntil blocks until the flag is set or the given deadline (expressed in
// f's Clock domain, in seconds) passes, whichever comes first. It reports
// true if the flag was observed set, false on deadline.
func (f *Flag) WaitUntil(deadline float64) bool {
	remaining := deadline - f.clock.Seconds()
	if remaining <= 0 {
		select {
		case <-f.ch:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(time.Duration(remaining * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-f.ch:
		return true
	case <-timer.C:
		return false
	}
}
