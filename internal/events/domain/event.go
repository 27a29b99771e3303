// Package domain defines the ops event emitted by the session core.
package domain

import "time"

// Event is one operational event (tenant-scoped, optional group/user). Used
// for the alerting channel: deadline fires, persistence failures, mute
// batches. Serialized as JSON on the wire (Kafka message value, Loki line).
type Event struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	GroupID   string    `json:"groupId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event types emitted by the session core.
const (
	TypeSessionClosedDeadline = "session_closed_deadline"
	TypeDeadlineSet           = "deadline_set"
	TypeDeadlineCancelled     = "deadline_cancelled"
	TypePersistenceFailure    = "persistence_failure"
	TypeMuteBatch             = "mute_batch"
)
