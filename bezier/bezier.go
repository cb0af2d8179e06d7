/*
DESCRIPTION
  bezier.go provides the piecewise cubic Bezier spline used to animate every
  time-varying quantity in a script: layer geometry, opacity, and the
  presentation-time-to-source-time "play" mapping.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bezier provides a piecewise cubic Bezier spline evaluator,
// including range-extrema computation over an interval, with an optional
// periodic repeat.
package bezier

import (
	"fmt"
	"math"
	"sort"
)

// Segment is a single cubic Bezier segment, defining f(t) for t in
// [TB, TE] via the control values (XB, P1, P2, XE) and u = (t-TB)/(TE-TB).
// TB must be <= TE.
type Segment struct {
	TB, TE         float64
	XB, P1, P2, XE float64
}

// Valid reports whether the segment's invariant TB <= TE holds.
func (s Segment) Valid() bool { return s.TB <= s.TE }

// At evaluates the segment at t, which must lie in [TB, TE]. The caller is
// responsible for range checking; At panics if t falls outside the segment,
// since that indicates a programming error in the caller (the spline's own
// lookup never calls At out of range).
func (s Segment) At(t float64) float64 {
	if t < s.TB || t > s.TE {
		panic(fmt.Sprintf("bezier: At(%v) out of segment range [%v, %v]", t, s.TB, s.TE))
	}
	if s.TE == s.TB {
		return (s.XB + s.XE) / 2
	}
	u := (t - s.TB) / (s.TE - s.TB)
	return cubic(s.XB, s.P1, s.P2, s.XE, u)
}

// cubic evaluates the cubic Bezier with control points (a, b, c, d) at
// parameter u using direct Bernstein-basis expansion.
func cubic(a, b, c, d, u float64) float64 {
	v := 1 - u
	return v*v*v*a + 3*v*v*u*b + 3*v*u*u*c + u*u*u*d
}

// derivCoeffs returns the coefficients (a, b, c) of the derivative
// df/du = a*u^2 + b*u + c for the segment's control values.
func (s Segment) derivCoeffs() (a, b, c float64) {
	a = 3 * (-s.XB + 3*(s.P1-s.P2) + s.XE)
	b = 6 * (s.XB - 2*s.P1 + s.P2)
	c = 3 * (s.P1 - s.XB)
	return a, b, c
}

// Spline is an ordered, non-overlapping sequence of Segments, strictly
// increasing in TB, with an optional positive Repeat period.
type Spline struct {
	Segments []Segment

	// Repeat, if positive, makes the spline (t-t0) mod Repeat + t0 periodic,
	// where t0 is the first segment's TB.
	Repeat float64
}

// Const returns a single-segment, non-animating Spline holding the constant
// value x forever (from t=0).
func Const(x float64) Spline {
	return Spline{Segments: []Segment{{TB: 0, TE: math.Inf(1), XB: x, P1: x, P2: x, XE: x}}}
}

// segmentIndex returns the index of the segment with the largest TB <= t,
// or -1 if t is before every segment's TB.
func (b *Spline) segmentIndex(t float64) int {
	// sort.Search finds the first index whose TB > t; the segment we want is
	// the one immediately before it.
	i := sort.Search(len(b.Segments), func(i int) bool { return b.Segments[i].TB > t })
	return i - 1
}

// periodOf returns t mapped into the first period, given t0, when the spline
// repeats.
func (b *Spline) periodOf(t, t0 float64) float64 {
	if b.Repeat <= 0 {
		return t
	}
	m := math.Mod(t-t0, b.Repeat)
	if m < 0 {
		m += b.Repeat
	}
	return m + t0
}

// At evaluates the spline at t, returning ok=false when t is undefined:
// below the first segment's TB, in a gap between segments, or the spline has
// no segments at all.
func (b *Spline) At(t float64) (x float64, ok bool) {
	if len(b.Segments) == 0 {
		return 0, false
	}
	t0 := b.Segments[0].TB
	if t < t0 {
		return 0, false
	}
	if b.Repeat > 0 {
		t = b.periodOf(t, t0)
	}
	i := b.segmentIndex(t)
	if i < 0 {
		return 0, false
	}
	seg := b.Segments[i]
	if t > seg.TE {
		return 0, false
	}
	return seg.At(t), true
}
