package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no migrations applied")
	}
	if versions[0] != 1 {
		t.Errorf("first version = %d, want 1", versions[0])
	}
}

func TestGetSet_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set(KeyLastSyncStamp, "1730000000000"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(KeyLastSyncStamp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "1730000000000" {
		t.Errorf("Get = %q, want %q", got, "1730000000000")
	}
}

func TestSet_Overwrites(t *testing.T) {
	s := openTestStore(t)

	s.Set("k", "one")
	if err := s.Set("k", "two"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "two" {
		t.Errorf("Get = %q, want %q", got, "two")
	}
}

func TestGet_Missing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	s.Set("k", "v")
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}

	// Deleting again is fine.
	if err := s.Delete("k"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestKeys_Sorted(t *testing.T) {
	s := openTestStore(t)

	s.Set("b", "2")
	s.Set("a", "1")
	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys = %v, want [a b]", keys)
	}
}
