/*
DESCRIPTION
  extrema.go computes the value-space extrema of a Spline over a t-range, as
  an interval.Set of [min, max) brackets — used by the script runner to turn
  a layer's or standby's play spline into a "wanted" source-time
  interval-set.
*/

package bezier

import (
	"math"

	"github.com/ausocean/playout/interval"
)

// RangeOver returns the value-space extrema of b over [t0, t1], as an
// interval.Set of [min, max) brackets — one candidate per defined segment
// intersected with [t0, t1], merged where candidates overlap in value space.
// RangeOver returns an empty Set if b is undefined throughout [t0, t1].
func (b *Spline) RangeOver(t0, t1 float64) interval.Set {
	if len(b.Segments) == 0 {
		return interval.Set{}
	}
	first := b.Segments[0].TB
	if t1 < math.Max(t0, first) {
		return interval.Set{}
	}

	if b.Repeat <= 0 {
		return rangeOverSegments(b.Segments, t0, t1)
	}

	lo := math.Max(t0, first)
	hi := t1
	if hi-lo >= b.Repeat {
		// A full period is covered; one period's worth of segments brackets
		// every value the spline ever takes.
		return rangeOverSegments(b.Segments, first, first+b.Repeat)
	}

	// Less than a full period: map into period-local coordinates and
	// decompose into at most two sub-ranges that each live inside one period.
	length := hi - lo
	p0 := b.periodOf(lo, first)
	if p0+length <= first+b.Repeat {
		return rangeOverSegments(b.Segments, p0, p0+length)
	}

	out := rangeOverSegments(b.Segments, p0, first+b.Repeat)
	rem := p0 + length - (first + b.Repeat)
	wrapped := rangeOverSegments(b.Segments, first, first+rem)
	out.Union(wrapped)
	return out
}

// rangeOverSegments computes the non-repeating extrema of segs over
// [t0, t1]: each segment contributes at most one value-bracket candidate,
// seeded by its clipped endpoints and widened by any interior critical
// point of the cubic's derivative that falls within the clip.
func rangeOverSegments(segs []Segment, t0, t1 float64) interval.Set {
	var out interval.Set
	for _, seg := range segs {
		cb := math.Max(seg.TB, t0)
		ce := math.Min(seg.TE, t1)
		if cb > ce {
			continue
		}

		lo := seg.At(cb)
		hi := seg.At(ce)
		if lo > hi {
			lo, hi = hi, lo
		}

		if seg.TE > seg.TB {
			a, bq, c := seg.derivCoeffs()
			tryRoot := func(u float64) {
				tr := seg.TB + u*(seg.TE-seg.TB)
				if tr < cb || tr > ce {
					return
				}
				x := seg.At(tr)
				if x < lo {
					lo = x
				}
				if x > hi {
					hi = x
				}
			}
			switch {
			case a != 0:
				d := bq*bq - 4*a*c
				if d >= 0 {
					sq := math.Sqrt(d)
					tryRoot((-bq + sq) / (2 * a))
					tryRoot((-bq - sq) / (2 * a))
				}
			case bq != 0:
				tryRoot(-c / bq)
			}
		}

		out.Insert(valueBracket(lo, hi))
	}
	return out
}

// valueBracket returns the half-open value interval [lo, hi), widened to a
// minimal non-empty interval when lo == hi (a constant segment), since an
// empty Interval would be silently dropped by Set.Insert.
func valueBracket(lo, hi float64) interval.Interval {
	if hi <= lo {
		return interval.New(lo, math.Nextafter(lo, math.Inf(1)))
	}
	return interval.New(lo, hi)
}
