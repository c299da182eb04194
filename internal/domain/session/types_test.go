package session

import (
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	c := testContext()
	r := NewRecord("Physics / Mechanics / Kinematics", c)

	if r.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", r.CreatedAt.Location())
	}
	if !r.CreatedAt.Equal(r.LastUsed) {
		t.Errorf("CreatedAt %v != LastUsed %v", r.CreatedAt, r.LastUsed)
	}
	// No monotonic reading: a round trip through text must compare equal with ==.
	parsed, err := time.Parse(time.RFC3339Nano, r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != r.CreatedAt {
		t.Errorf("round trip = %v, want %v", parsed, r.CreatedAt)
	}
}

func TestRecord_MarkUsed(t *testing.T) {
	r := NewRecord("A", testContext())

	prev := r.LastUsed
	for i := 0; i < 5; i++ {
		r.MarkUsed()
		if !r.LastUsed.After(prev) {
			t.Fatalf("MarkUsed() iteration %d: LastUsed %v not after %v", i, r.LastUsed, prev)
		}
		prev = r.LastUsed
	}
	if r.LastUsed.Before(r.CreatedAt) {
		t.Error("LastUsed before CreatedAt")
	}
}

func TestRecord_MarkUsedClockSkew(t *testing.T) {
	r := NewRecord("A", testContext())
	future := r.CreatedAt.Add(time.Hour)
	r.LastUsed = future

	r.MarkUsed()

	if !r.LastUsed.After(future) {
		t.Errorf("LastUsed = %v, want after %v", r.LastUsed, future)
	}
}
