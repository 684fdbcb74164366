package disambiguator

import "testing"

func TestSyncAccumulator_ExtendThenSeal(t *testing.T) {
	var acc syncAccumulator
	acc.extend(LightEvent{Timestamp: 1000, Length: 3000})
	acc.extend(LightEvent{Timestamp: 1010, Length: 3500})

	if !acc.active {
		t.Fatal("expected accumulator to be active after extend")
	}

	entry := acc.seal()
	if entry.FirstTimestamp != 1000 {
		t.Errorf("FirstTimestamp = %d, want 1000 (earliest)", entry.FirstTimestamp)
	}
	if entry.LongestLength != 3500 {
		t.Errorf("LongestLength = %d, want 3500 (longest)", entry.LongestLength)
	}
	if entry.Count != 2 {
		t.Errorf("Count = %d, want 2", entry.Count)
	}
	if acc.active {
		t.Error("expected accumulator to reset after seal")
	}
}

func TestPulsesOverlap(t *testing.T) {
	a := LightEvent{Timestamp: 1000, Length: 4000}
	overlapping := LightEvent{Timestamp: 2000, Length: 4000} // overlap 3000 > 4000/2
	if !pulsesOverlap(a, overlapping) {
		t.Error("expected pulses to overlap")
	}

	disjoint := LightEvent{Timestamp: 10000, Length: 1000}
	if pulsesOverlap(a, disjoint) {
		t.Error("expected disjoint pulses to not overlap")
	}

	barelyTouching := LightEvent{Timestamp: 4900, Length: 4000} // overlap 100, shorter/2=2000
	if pulsesOverlap(a, barelyTouching) {
		t.Error("expected overlap below half-shorter threshold to not count")
	}
}

func TestSyncHistory_RingWrapsAndOrders(t *testing.T) {
	var h syncHistory
	for i := 0; i < SyncHistoryLen+3; i++ {
		h.push(SyncEntry{FirstTimestamp: uint32(i)})
	}

	all := h.all()
	if len(all) != SyncHistoryLen {
		t.Fatalf("expected %d retained entries, got %d", SyncHistoryLen, len(all))
	}
	// Oldest retained entry should be index 3 (0,1,2 evicted).
	if all[0].FirstTimestamp != 3 {
		t.Errorf("oldest retained FirstTimestamp = %d, want 3", all[0].FirstTimestamp)
	}
	last, ok := h.last()
	if !ok || last.FirstTimestamp != uint32(SyncHistoryLen+2) {
		t.Errorf("last() = %v, want FirstTimestamp=%d", last, SyncHistoryLen+2)
	}
}

func TestSyncHistory_PartiallyFilled(t *testing.T) {
	var h syncHistory
	h.push(SyncEntry{FirstTimestamp: 1})
	h.push(SyncEntry{FirstTimestamp: 2})

	all := h.all()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].FirstTimestamp != 1 || all[1].FirstTimestamp != 2 {
		t.Errorf("unexpected order: %v", all)
	}
}
