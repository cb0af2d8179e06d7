package bezier

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestAtNonRepeating(t *testing.T) {
	b := Spline{Segments: []Segment{
		{TB: 1, TE: 4, XB: 10, P1: 20, P2: 30, XE: 40},
		{TB: 5, TE: 8, XB: 10, P1: 30, P2: 50, XE: 40},
		{TB: 11, TE: math.Inf(1), XB: 50, P1: 60, P2: 70, XE: 80},
	}}

	cases := []struct {
		t     float64
		want  float64
		valid bool
	}{
		{0.9, 0, false},
		{1.0, 10, true},
		{2.5, 25, true},
		{4.0, 40, true},
		{4.1, 0, false},
		{5.0, 10, true},
		{8.0, 40, true},
		{8.1, 0, false},
		{11.0, 50, true},
		{1.1e7, 50, true},
	}

	for _, c := range cases {
		got, ok := b.At(c.t)
		if ok != c.valid {
			t.Errorf("At(%v) ok = %v, want %v", c.t, ok, c.valid)
			continue
		}
		if ok && !approxEqual(got, c.want, 1e-9) {
			t.Errorf("At(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestAtRepeating(t *testing.T) {
	b := Spline{
		Segments: []Segment{
			{TB: 1, TE: 4, XB: 10, P1: 20, P2: 30, XE: 40},
			{TB: 5, TE: 8, XB: 10, P1: 30, P2: 50, XE: 40},
		},
		Repeat: 5,
	}

	if got, ok := b.At(5.0); !ok || !approxEqual(got, 10, 1e-9) {
		t.Errorf("At(5.0) = %v, %v; want 10, true", got, ok)
	}

	if got, ok := b.At(5.9); !ok || !approxEqual(got, 27.19, 0.01) {
		t.Errorf("At(5.9) = %v, %v; want ~27.19, true", got, ok)
	}

	for tt := 1.0; tt < 6; tt += 0.1 {
		if tt >= 4 && tt < 5 {
			continue // gap between segments within the period.
		}
		base, ok := b.At(tt)
		if !ok {
			continue
		}
		for k := 0; k < 4; k++ {
			shifted, ok := b.At(tt + 5*float64(k))
			if !ok {
				t.Errorf("At(%v) became undefined after +%dP shift", tt, k)
				continue
			}
			if !approxEqual(base, shifted, 1e-6) {
				t.Errorf("periodicity broken: At(%v)=%v, At(%v)=%v", tt, base, tt+5*float64(k), shifted)
			}
		}
	}
}

func TestEndpoints(t *testing.T) {
	segs := []Segment{
		{TB: -2, TE: 2, XB: 10, P1: -10, P2: 50, XE: 40},
		{TB: 2, TE: 6, XB: 40, P1: 30, P2: 20, XE: 10},
	}
	b := Spline{Segments: segs}
	for _, s := range segs {
		if got, ok := b.At(s.TB); !ok || !approxEqual(got, s.XB, 1e-9) {
			t.Errorf("At(TB=%v) = %v, %v; want %v, true", s.TB, got, ok, s.XB)
		}
		if got, ok := b.At(s.TE); !ok || !approxEqual(got, s.XE, 1e-9) {
			t.Errorf("At(TE=%v) = %v, %v; want %v, true", s.TE, got, ok, s.XE)
		}
	}
}

func TestRangeOverBrackets(t *testing.T) {
	b := Spline{Segments: []Segment{
		{TB: -2, TE: 2, XB: 10, P1: -10, P2: 50, XE: 40},
		{TB: 2, TE: 6, XB: 40, P1: 30, P2: 20, XE: 10},
	}}

	samples := func(a, bnd float64) (lo, hi float64) {
		lo, hi = math.Inf(1), math.Inf(-1)
		for i := 0; i <= 1000; i++ {
			tt := a + (bnd-a)*float64(i)/1000
			v, ok := b.At(tt)
			if !ok {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return lo, hi
	}

	ranges := [][2]float64{{-2, 6}, {-1, 1}, {0, 4}, {2, 5.5}}
	for _, r := range ranges {
		set := b.RangeOver(r[0], r[1])
		sLo, sHi := samples(r[0], r[1])

		tol := 0.1 * math.Max(math.Abs(sHi-sLo), 1)
		found := false
		for _, iv := range set.Intervals() {
			if floats.EqualWithinAbs(iv.Begin, sLo, tol) && floats.EqualWithinAbs(iv.End, sHi, tol) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("RangeOver(%v,%v) = %v does not bracket sampled [%v,%v] within 10%%", r[0], r[1], set.Intervals(), sLo, sHi)
		}
	}
}

func TestRangeOverBracketsPointValue(t *testing.T) {
	b := Spline{Segments: []Segment{{TB: 0, TE: 10, XB: 0, P1: 3, P2: 6, XE: 9}}}
	for tt := 0.0; tt <= 10; tt += 1 {
		x, ok := b.At(tt)
		if !ok {
			t.Fatalf("At(%v) should be defined", tt)
		}
		set := b.RangeOver(tt, tt)
		if !set.Contains(x) {
			t.Errorf("RangeOver(%v,%v) = %v does not contain At(%v)=%v", tt, tt, set.Intervals(), tt, x)
		}
	}
}

func TestRangeOverEmpty(t *testing.T) {
	var b Spline
	if got := b.RangeOver(0, 10); !got.IsEmpty() {
		t.Errorf("RangeOver on empty spline = %v, want empty", got.Intervals())
	}
}
