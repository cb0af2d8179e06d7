/*
DESCRIPTION
  interval.go provides Interval, a half-open range [Begin, End) over float64.
  Set, a canonical, non-overlapping and non-abutting collection of
  Intervals, is defined in set.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package interval provides a half-open interval type and a canonical
// interval-set algebra over float64, used throughout playout to reason about
// wanted versus loaded frame coverage.
package interval

import (
	"fmt"
)

// Interval is the half-open range [Begin, End). An Interval is empty when
// Begin >= End.
type Interval struct {
	Begin, End float64
}

// New returns the Interval [b, e).
func New(b, e float64) Interval { return Interval{Begin: b, End: e} }

// Empty reports whether r contains no points.
func (r Interval) Empty() bool { return r.Begin >= r.End }

// Len returns the length of r, or 0 if r is empty.
func (r Interval) Len() float64 {
	if r.Empty() {
		return 0
	}
	return r.End - r.Begin
}

// Contains reports whether t lies within r.
func (r Interval) Contains(t float64) bool { return r.Begin <= t && t < r.End }

// Overlaps reports whether r and s share any point.
func (r Interval) Overlaps(s Interval) bool {
	return !r.Empty() && !s.Empty() && r.Begin < s.End && s.Begin < r.End
}

// Less orders intervals lexicographically on (Begin, End), matching the
// data model's ordering rule.
func (r Interval) Less(s Interval) bool {
	if r.Begin != s.Begin {
		return r.Begin < s.Begin
	}
	return r.End < s.End
}

// String renders r as "[b, e)".
func (r Interval) String() string { return fmt.Sprintf("[%g, %g)", r.Begin, r.End) }

// Intersect returns the intersection of r and s, which is empty if they do
// not overlap.
func (r Interval) Intersect(s Interval) Interval {
	b := r.Begin
	if s.Begin > b {
		b = s.Begin
	}
	e := r.End
	if s.End < e {
		e = s.End
	}
	if b >= e {
		return Interval{}
	}
	return Interval{Begin: b, End: e}
}
