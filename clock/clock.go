/*
DESCRIPTION
  clock.go provides the Clock abstraction: a monotonic clock used for
  presentation-time scheduling and a wall-clock used only for logging.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package clock provides a monotonic/realtime clock abstraction and a
// settable, sleep-until-set one-shot Flag, both injectable so workers can be
// driven by a fake clock in tests.
package clock

import "time"

// Clock reports the current time, in seconds, within one clock domain. A
// Clock is a singleton by convenience (Monotonic, Realtime below) but should
// be injected into workers rather than referenced as a package global,
// matching the spec's "global state: none in the core" design note.
type Clock interface {
	// Seconds returns the current time, in seconds, within this Clock's
	// domain.
	Seconds() float64
}

// monotonicClock measures a strictly non-decreasing time in seconds since
// the clock was created, backed by time.Since's use of the runtime's
// monotonic reading.
type monotonicClock struct {
	epoch time.Time
}

// NewMonotonic returns a new monotonic Clock, epoched at the moment of the
// call.
func NewMonotonic() Clock { return &monotonicClock{epoch: time.Now()} }

func (c *monotonicClock) Seconds() float64 { return time.Since(c.epoch).Seconds() }

// realtimeClock reports seconds since the Unix epoch, for logging only; it
// is a distinct domain from any monotonicClock and must never be compared
// against one.
type realtimeClock struct{}

// NewRealtime returns a new realtime Clock.
func NewRealtime() Clock { return realtimeClock{} }

func (realtimeClock) Seconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

// Monotonic and Realtime are the process-wide default clocks, provided for
// convenience. Components accept a Clock parameter so tests can substitute
// a fake.
var (
	Monotonic = NewMonotonic()
	Realtime  = NewRealtime()
)
