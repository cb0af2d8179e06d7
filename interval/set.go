/*
DESCRIPTION
  set.go provides Set, the canonical interval-set used to reason about
  "wanted" versus "loaded" coverage. A Set is always the unique,
  non-overlapping, non-abutting cover of its point-set.
*/

package interval

import "sort"

// Set is an ordered, canonical collection of Intervals: no two elements
// overlap or abut (consecutive elements satisfy a.End < b.Begin). The zero
// value is an empty Set ready to use.
type Set struct {
	ivs []Interval
}

// Of returns a new Set containing the given intervals.
func Of(rs ...Interval) Set {
	var s Set
	for _, r := range rs {
		s.Insert(r)
	}
	return s
}

// IsEmpty reports whether s has no intervals.
func (s *Set) IsEmpty() bool { return len(s.ivs) == 0 }

// Len returns the number of (disjoint) intervals in s.
func (s *Set) Len() int { return len(s.ivs) }

// Intervals returns the Set's intervals in ascending order. The returned
// slice must not be mutated by the caller.
func (s *Set) Intervals() []Interval { return s.ivs }

// Clone returns an independent copy of s.
func (s *Set) Clone() Set {
	out := Set{ivs: make([]Interval, len(s.ivs))}
	copy(out.ivs, s.ivs)
	return out
}

// Bounds returns [first.Begin, last.End), or the empty Interval if s is
// empty.
func (s *Set) Bounds() Interval {
	if len(s.ivs) == 0 {
		return Interval{}
	}
	return Interval{Begin: s.ivs[0].Begin, End: s.ivs[len(s.ivs)-1].End}
}

// Insert merges r into s: every element overlapping or abutting r is
// absorbed into a single interval spanning the union. Insert is a no-op for
// an empty r.
func (s *Set) Insert(r Interval) {
	if r.Empty() {
		return
	}

	// lo is the first index that could merge with r: the first interval
	// whose End is at least r.Begin (so it touches or overlaps from the left).
	lo := sort.Search(len(s.ivs), func(i int) bool { return s.ivs[i].End >= r.Begin })

	begin, end := r.Begin, r.End
	hi := lo
	for hi < len(s.ivs) && s.ivs[hi].Begin <= r.End {
		if s.ivs[hi].Begin < begin {
			begin = s.ivs[hi].Begin
		}
		if s.ivs[hi].End > end {
			end = s.ivs[hi].End
		}
		hi++
	}

	merged := Interval{Begin: begin, End: end}
	s.ivs = spliceOne(s.ivs, lo, hi, merged)
}

// Erase removes every point of r from s, splitting any straddling interval
// into up to two fragments.
func (s *Set) Erase(r Interval) {
	if r.Empty() {
		return
	}

	lo := sort.Search(len(s.ivs), func(i int) bool { return s.ivs[i].End > r.Begin })
	hi := lo
	var frags []Interval
	for hi < len(s.ivs) && s.ivs[hi].Begin < r.End {
		cur := s.ivs[hi]
		if cur.Begin < r.Begin {
			frags = append(frags, Interval{Begin: cur.Begin, End: r.Begin})
		}
		if cur.End > r.End {
			frags = append(frags, Interval{Begin: r.End, End: cur.End})
		}
		hi++
	}

	out := make([]Interval, 0, len(s.ivs)-(hi-lo)+len(frags))
	out = append(out, s.ivs[:lo]...)
	out = append(out, frags...)
	out = append(out, s.ivs[hi:]...)
	s.ivs = out
}

// Union absorbs every interval of other into s.
func (s *Set) Union(other Set) {
	for _, r := range other.ivs {
		s.Insert(r)
	}
}

// Subtract removes every interval of other from s.
func (s *Set) Subtract(other Set) {
	for _, r := range other.ivs {
		s.Erase(r)
	}
}

// OverlapBegin returns the smallest element whose End > t: the first
// interval that either contains t or lies strictly after it. ok is false if
// no such element exists.
func (s *Set) OverlapBegin(t float64) (r Interval, ok bool) {
	i := sort.Search(len(s.ivs), func(i int) bool { return s.ivs[i].End > t })
	if i == len(s.ivs) {
		return Interval{}, false
	}
	return s.ivs[i], true
}

// OverlapEnd returns the first element strictly after t by Begin. ok is
// false if no such element exists.
func (s *Set) OverlapEnd(t float64) (r Interval, ok bool) {
	i := sort.Search(len(s.ivs), func(i int) bool { return s.ivs[i].Begin > t })
	if i == len(s.ivs) {
		return Interval{}, false
	}
	return s.ivs[i], true
}

// Contains reports whether t is a member of the point-set s represents.
func (s *Set) Contains(t float64) bool {
	r, ok := s.OverlapBegin(t)
	return ok && r.Begin <= t
}

// Clip returns the intersection of s with r, as a new Set.
func (s *Set) Clip(r Interval) Set {
	var out Set
	if r.Empty() {
		return out
	}
	for _, iv := range s.ivs {
		if x := iv.Intersect(r); !x.Empty() {
			out.Insert(x)
		}
	}
	return out
}

// Equal reports whether s and other contain the same intervals.
func (s *Set) Equal(other Set) bool {
	if len(s.ivs) != len(other.ivs) {
		return false
	}
	for i := range s.ivs {
		if s.ivs[i] != other.ivs[i] {
			return false
		}
	}
	return true
}

// spliceOne replaces s[lo:hi] with the single interval v.
func spliceOne(s []Interval, lo, hi int, v Interval) []Interval {
	out := make([]Interval, 0, len(s)-(hi-lo)+1)
	out = append(out, s[:lo]...)
	out = append(out, v)
	out = append(out, s[hi:]...)
	return out
}
