// Package domain defines the persisted deadline entry for auto-closing sessions.
package domain

import "time"

// Entry is one armed deadline for a (tenant, group) pair. At most one live
// entry exists per pair; its existence is the sole source of truth for
// "a deadline is pending". The stored record keeps the admin-given magnitude
// and the set time, matching the on-disk shape operators inspect.
type Entry struct {
	TenantID  string
	GroupID   string
	Seconds   int64
	CreatedAt time.Time
}

// FireAt is the absolute time the deadline elapses.
func (e Entry) FireAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.Seconds) * time.Second)
}

// Remaining is the time left until FireAt, negative when overdue.
func (e Entry) Remaining(now time.Time) time.Duration {
	return e.FireAt().Sub(now)
}
