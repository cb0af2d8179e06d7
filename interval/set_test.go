package interval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustCanonical(t *testing.T, s *Set) {
	t.Helper()
	ivs := s.Intervals()
	for i, r := range ivs {
		if r.Empty() {
			t.Fatalf("set contains empty interval at %d: %v", i, r)
		}
		if i > 0 && ivs[i-1].End >= r.Begin {
			t.Fatalf("set not canonical: %v abuts or overlaps %v", ivs[i-1], r)
		}
	}
}

func TestInsertMergesOverlapAndAbut(t *testing.T) {
	var s Set
	s.Insert(New(0, 2))
	s.Insert(New(2, 4)) // abuts, must merge (touch-join).
	s.Insert(New(10, 12))
	s.Insert(New(5, 9)) // overlaps neither, stays separate.
	mustCanonical(t, &s)

	want := []Interval{New(0, 4), New(5, 9), New(10, 12)}
	if diff := cmp.Diff(want, s.Intervals()); diff != "" {
		t.Fatalf("unexpected intervals (-want +got):\n%s", diff)
	}
}

func TestInsertIdempotent(t *testing.T) {
	var a, b Set
	a.Insert(New(1, 5))
	a.Insert(New(1, 5))

	b.Insert(New(1, 5))

	if !a.Equal(b) {
		t.Fatalf("insert not idempotent: %v != %v", a.Intervals(), b.Intervals())
	}
}

func TestEraseIdempotent(t *testing.T) {
	var a, b Set
	a.Insert(New(0, 10))
	a.Erase(New(3, 6))
	a.Erase(New(3, 6))

	b.Insert(New(0, 10))
	b.Erase(New(3, 6))

	if !a.Equal(b) {
		t.Fatalf("erase not idempotent: %v != %v", a.Intervals(), b.Intervals())
	}
}

func TestEraseSplitsStraddle(t *testing.T) {
	var s Set
	s.Insert(New(0, 10))
	s.Erase(New(3, 6))
	mustCanonical(t, &s)

	want := []Interval{New(0, 3), New(6, 10)}
	if diff := cmp.Diff(want, s.Intervals()); diff != "" {
		t.Fatalf("unexpected intervals (-want +got):\n%s", diff)
	}
}

func TestInsertThenEraseIsInverse(t *testing.T) {
	var s Set
	s.Insert(New(0, 3))
	s.Insert(New(8, 10))

	base := s.Clone()
	s.Insert(New(3, 8))
	s.Erase(New(3, 8))

	for t0 := 0.0; t0 < 10; t0 += 0.25 {
		if base.Contains(t0) != s.Contains(t0) {
			t.Fatalf("point-set differs at t=%v: base=%v got=%v", t0, base.Contains(t0), s.Contains(t0))
		}
	}
}

func TestContainsMatchesOverlapBegin(t *testing.T) {
	var s Set
	s.Insert(New(1, 4))
	s.Insert(New(6, 9))

	for _, tc := range []float64{0, 1, 2, 3.999, 4, 5, 6, 8.9, 9, 100} {
		r, ok := s.OverlapBegin(tc)
		want := ok && r.Begin <= tc && tc < r.End
		if got := s.Contains(tc); got != want {
			t.Errorf("Contains(%v) = %v, want %v (overlap_begin=%v ok=%v)", tc, got, want, r, ok)
		}
	}
}

func TestOverlapEnd(t *testing.T) {
	var s Set
	s.Insert(New(1, 4))
	s.Insert(New(6, 9))

	r, ok := s.OverlapEnd(4)
	if !ok || r != New(6, 9) {
		t.Fatalf("OverlapEnd(4) = %v, %v; want [6,9) true", r, ok)
	}

	_, ok = s.OverlapEnd(9)
	if ok {
		t.Fatalf("OverlapEnd(9) should report no element after the last interval")
	}
}

func TestBoundsEmpty(t *testing.T) {
	var s Set
	if got := s.Bounds(); !got.Empty() {
		t.Fatalf("Bounds() of empty set = %v, want empty", got)
	}
}

func TestClip(t *testing.T) {
	var s Set
	s.Insert(New(0, 5))
	s.Insert(New(10, 20))

	got := s.Clip(New(3, 15))
	want := []Interval{New(3, 5), New(10, 15)}
	if diff := cmp.Diff(want, got.Intervals()); diff != "" {
		t.Fatalf("unexpected clip (-want +got):\n%s", diff)
	}
}

func TestUnionSubtract(t *testing.T) {
	var a, b Set
	a.Insert(New(0, 2))
	a.Insert(New(10, 12))
	b.Insert(New(1, 11))

	a.Union(b)
	mustCanonical(t, &a)
	if got := a.Bounds(); got != New(0, 12) {
		t.Fatalf("Union bounds = %v, want [0,12)", got)
	}

	a.Subtract(b)
	mustCanonical(t, &a)
	want := []Interval{New(0, 1), New(11, 12)}
	if diff := cmp.Diff(want, a.Intervals()); diff != "" {
		t.Fatalf("unexpected intervals after subtract (-want +got):\n%s", diff)
	}
}
