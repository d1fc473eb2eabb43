package tui

import "testing"

func TestScrollKeeperRestoreClampsAndFinishes(t *testing.T) {
	k := newScrollKeeper(2)
	k.SetOffset("s1", 40)
	k.SetOffset("s2", 3)
	k.Snapshot()

	if _, ok := k.NextDelay(); !ok {
		t.Fatal("expected pending restore after snapshot")
	}

	// First attempt sees a still-shrunken column.
	rows := map[string]int{"s1": 10, "s2": 20}
	if !k.Restore(rows) {
		t.Fatal("expected more restore attempts")
	}
	if got := k.Offset("s1"); got != 11 {
		t.Fatalf("expected clamp to rows-1+reveal, got %d", got)
	}
	if got := k.Offset("s2"); got != 3 {
		t.Fatalf("expected untouched offset within range, got %d", got)
	}

	// Later attempts see the fully loaded column and relax the clamp.
	rows["s1"] = 60
	k.Restore(rows)
	if got := k.Offset("s1"); got != 40 {
		t.Fatalf("expected original offset restored, got %d", got)
	}

	for k.Restore(rows) {
	}
	if _, ok := k.NextDelay(); ok {
		t.Fatal("expected restore finished")
	}
	if k.Restore(rows) {
		t.Fatal("expected no-op after pending cleared")
	}
}

func TestScrollKeeperResetDropsState(t *testing.T) {
	k := newScrollKeeper(0)
	k.SetOffset("s1", 7)
	k.Snapshot()
	k.Reset()
	if k.Offset("s1") != 0 {
		t.Fatal("expected offsets cleared")
	}
	if _, ok := k.NextDelay(); ok {
		t.Fatal("expected no pending restore after reset")
	}
}

func TestScrollKeeperNegativeOffsetIgnored(t *testing.T) {
	k := newScrollKeeper(0)
	k.SetOffset("s1", -5)
	if k.Offset("s1") != 0 {
		t.Fatal("expected negative offset stored as zero")
	}
}
