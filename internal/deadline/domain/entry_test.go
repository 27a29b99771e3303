package domain

import (
	"testing"
	"time"
)

func TestEntryFireAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{TenantID: "t", GroupID: "g", Seconds: 120, CreatedAt: created}

	want := created.Add(2 * time.Minute)
	if got := e.FireAt(); !got.Equal(want) {
		t.Errorf("FireAt = %v, want %v", got, want)
	}

	if got := e.Remaining(created.Add(time.Minute)); got != time.Minute {
		t.Errorf("Remaining = %v, want 1m", got)
	}
	if got := e.Remaining(created.Add(3 * time.Minute)); got != -time.Minute {
		t.Errorf("Remaining past fire = %v, want -1m", got)
	}
}
