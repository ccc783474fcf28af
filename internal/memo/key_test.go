package memo

import "testing"

func TestIdentityKey_TruncatesToSecond(t *testing.T) {
	k1 := IdentityKey("Call mom", "2025-10-01T09:00:00.123Z")
	k2 := IdentityKey("Call mom", "2025-10-01T09:00:00.987Z")
	if k1 != k2 {
		t.Errorf("keys differ across milliseconds: %q vs %q", k1, k2)
	}
	want := "Call mom__2025-10-01T09:00:00"
	if k1 != want {
		t.Errorf("key = %q, want %q", k1, want)
	}
}

func TestIdentityKey_ShortTimestamp(t *testing.T) {
	if got := IdentityKey("x", "2025-10-01"); got != "x__2025-10-01" {
		t.Errorf("key = %q, want %q", got, "x__2025-10-01")
	}
	if got := IdentityKey("x", ""); got != "x__" {
		t.Errorf("key = %q, want %q", got, "x__")
	}
}

func TestDedupe_FirstWins(t *testing.T) {
	batch := []Candidate{
		{Draft: Draft{Content: "Call mom", Priority: PriorityHigh}, CreatedAt: "2025-10-01T09:00:00.100Z"},
		{Draft: Draft{Content: "Call mom", Priority: PriorityLow}, CreatedAt: "2025-10-01T09:00:00.900Z"},
		{Draft: Draft{Content: "Pay rent"}, CreatedAt: "2025-10-01T10:00:00Z"},
	}
	got := Dedupe(batch)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Priority != PriorityHigh {
		t.Errorf("survivor priority = %q, want the first-seen HIGH", got[0].Priority)
	}
	if got[1].Content != "Pay rent" {
		t.Errorf("got[1].Content = %q, want %q", got[1].Content, "Pay rent")
	}
}

func TestDedupe_PreservesOrder(t *testing.T) {
	batch := []Candidate{
		{Draft: Draft{Content: "a"}, CreatedAt: "2025-01-01T00:00:01Z"},
		{Draft: Draft{Content: "b"}, CreatedAt: "2025-01-01T00:00:02Z"},
		{Draft: Draft{Content: "a"}, CreatedAt: "2025-01-01T00:00:01Z"},
		{Draft: Draft{Content: "c"}, CreatedAt: "2025-01-01T00:00:03Z"},
	}
	got := Dedupe(batch)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("got[%d].Content = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestKeySet(t *testing.T) {
	set := KeySet([]Memo{
		{Content: "a", CreatedAt: "2025-01-01T00:00:01.000Z"},
		{Content: "b", CreatedAt: "2025-01-01T00:00:02.000Z"},
	})
	if _, ok := set["a__2025-01-01T00:00:01"]; !ok {
		t.Error("missing key for a")
	}
	if len(set) != 2 {
		t.Errorf("len = %d, want 2", len(set))
	}
}
