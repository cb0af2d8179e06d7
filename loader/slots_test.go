package loader

import (
	"testing"

	"github.com/ausocean/playout/interval"
)

func TestAssignSlotsExactMatch(t *testing.T) {
	slots := []*decoderSlot{{position: 5}, {position: 10}}
	toLoad := []interval.Interval{interval.New(10, 12)}

	assignments, used := assignSlots(toLoad, &slots)

	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(assignments))
	}
	if assignments[0].slot.position != 10 {
		t.Fatalf("assigned slot at position %v, want the exact match at 10", assignments[0].slot.position)
	}
	if len(used) != 1 || !used[assignments[0].slot] {
		t.Fatalf("used set = %v, want exactly the matched slot", used)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want no new slot created", len(slots))
	}
}

func TestAssignSlotsRecyclesNearestAtOrBefore(t *testing.T) {
	slots := []*decoderSlot{{position: 2}, {position: 8}, {position: 20}}
	toLoad := []interval.Interval{interval.New(10, 15)}

	assignments, _ := assignSlots(toLoad, &slots)

	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(assignments))
	}
	if got := assignments[0].slot.position; got != 8 {
		t.Fatalf("recycled slot at position %v, want 8 (nearest at-or-before 10)", got)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want no new slot created", len(slots))
	}
}

func TestAssignSlotsRecyclesNearestAfterWhenNoneBefore(t *testing.T) {
	slots := []*decoderSlot{{position: 20}, {position: 30}}
	toLoad := []interval.Interval{interval.New(10, 15)}

	assignments, _ := assignSlots(toLoad, &slots)

	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(assignments))
	}
	if got := assignments[0].slot.position; got != 20 {
		t.Fatalf("recycled slot at position %v, want 20 (smallest position >= 10)", got)
	}
}

func TestAssignSlotsCreatesFreshWhenNoneAvailable(t *testing.T) {
	slots := []*decoderSlot{{position: 5}}
	toLoad := []interval.Interval{interval.New(5, 6), interval.New(50, 60)}

	assignments, used := assignSlots(toLoad, &slots)

	if len(assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(assignments))
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots after assignment, want 2 (one recycled, one freshly created)", len(slots))
	}
	var freshSeen bool
	for _, sl := range slots {
		if sl.position == 50 {
			freshSeen = true
			if !used[sl] {
				t.Fatal("freshly created slot should be marked used")
			}
		}
	}
	if !freshSeen {
		t.Fatal("expected a fresh slot positioned at the unmatched interval's begin (50)")
	}
}

func TestAssignSlotsMarksAssignedState(t *testing.T) {
	slots := []*decoderSlot{{position: 0, state: slotIdle}}
	toLoad := []interval.Interval{interval.New(0, 1)}

	assignments, _ := assignSlots(toLoad, &slots)

	for _, a := range assignments {
		if a.slot.state != slotAssigned {
			t.Fatalf("slot state = %v, want %v", a.slot.state, slotAssigned)
		}
	}
}

func TestEvictIdleRemovesOnlyUnusedStaleSlots(t *testing.T) {
	stale := &decoderSlot{position: 1, lastUse: 0, state: slotIdle}
	fresh := &decoderSlot{position: 2, lastUse: 45, state: slotIdle}
	busy := &decoderSlot{position: 3, lastUse: 0, state: slotIdle}
	slots := []*decoderSlot{stale, fresh, busy}
	used := map[*decoderSlot]bool{busy: true}

	out := evictIdle(slots, used, 50, 10)

	if len(out) != 2 {
		t.Fatalf("got %d surviving slots, want 2", len(out))
	}
	for _, sl := range out {
		if sl == stale {
			t.Fatal("stale, unused slot should have been evicted")
		}
	}
	if stale.state != slotEvicted {
		t.Fatalf("evicted slot state = %v, want %v", stale.state, slotEvicted)
	}
}

func TestEvictIdleNoopWhenIdleTimeNotPositive(t *testing.T) {
	slots := []*decoderSlot{{position: 1, lastUse: 0}}
	out := evictIdle(slots, nil, 1000, 0)
	if len(out) != 1 {
		t.Fatalf("got %d slots, want eviction disabled (idleTime<=0) to keep all slots", len(out))
	}
}
