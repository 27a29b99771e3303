package events

import (
	"context"

	"groupwarden/internal/events/domain"
)

// Emitter emits ops events (e.g. to Kafka or OTel Logs). Best-effort; callers
// log and ignore errors.
type Emitter interface {
	// Emit sends a single event. Implementations may block briefly; call from
	// a goroutine if needed. Returns an error only on write failure.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
