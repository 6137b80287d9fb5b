package history

import "testing"

func TestRing_PushAndItems(t *testing.T) {
	r := NewRing[int](5)

	for i := 0; i < 3; i++ {
		r.Push(i)
	}

	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	got := r.Items()
	for i, v := range got {
		if v != i {
			t.Errorf("Items()[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing[int](4)

	for i := 0; i < 10; i++ {
		r.Push(i)
	}

	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", r.Len())
	}
	want := []int{6, 7, 8, 9}
	got := r.Items()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Items()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	stats := r.Stats()
	if stats.TotalPushed != 10 {
		t.Errorf("TotalPushed = %d, want 10", stats.TotalPushed)
	}
	if stats.Evicted != 6 {
		t.Errorf("Evicted = %d, want 6", stats.Evicted)
	}
}

func TestRing_LastAndReplaceLast(t *testing.T) {
	r := NewRing[int](3)

	if _, ok := r.Last(); ok {
		t.Error("Last() on empty ring should return false")
	}
	r.ReplaceLast(42) // no-op
	if r.Len() != 0 {
		t.Errorf("ReplaceLast on empty ring changed Len to %d", r.Len())
	}

	// Wrap the tail around index 0.
	for i := 1; i <= 4; i++ {
		r.Push(i)
	}
	if v, _ := r.Last(); v != 4 {
		t.Errorf("Last() = %d, want 4", v)
	}

	r.ReplaceLast(40)
	got := r.Items()
	want := []int{2, 3, 40}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Items()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRing_ItemsIsCopy(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)

	items := r.Items()
	items[0] = 99

	if v, _ := r.Last(); v != 1 {
		t.Errorf("mutating Items() result changed ring: Last() = %d", v)
	}
}
