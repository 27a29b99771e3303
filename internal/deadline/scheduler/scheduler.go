// Package scheduler arms one in-memory timer per live deadline registry entry
// and reconciles timers against the registry at startup.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"groupwarden/internal/deadline/repository"
)

// fireTimeout bounds the work done for a single deadline expiry (close,
// registry removal, announcement).
const fireTimeout = 30 * time.Second

// ExpiryHandler reacts to an elapsed deadline. The handler owns the critical
// section: it must re-check the registry entry under the per-group lock,
// close the session, and remove the entry in the same logical step, so a
// cancellation that raced the timer and won is observed as "entry absent".
type ExpiryHandler interface {
	HandleDeadlineExpiry(ctx context.Context, tenantID, groupID string) error
}

// Scheduler keeps at most one timer per group for one tenant. It is an
// explicit instance owned by the composition root; lifecycle is Start/Stop,
// nothing is armed at package init.
type Scheduler struct {
	registry repository.Registry
	tenantID string
	nowF     func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	handler ExpiryHandler
	ctx     context.Context
	stopped bool
}

// New returns a scheduler for the tenant's deadlines. SetHandler must be
// called before Start.
func New(registry repository.Registry, tenantID string) *Scheduler {
	return &Scheduler{
		registry: registry,
		tenantID: tenantID,
		nowF:     time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// SetHandler binds the expiry handler. The handler and the scheduler reference
// each other (commands arm timers, expiries invoke commands), so the binding
// happens after construction and before Start.
func (s *Scheduler) SetHandler(h ExpiryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start recovers the registry: overdue entries fire immediately (an admin
// expects eventual closure, not a silent drop), future entries are re-armed.
// Only keys without a live timer in this process are armed, so recovery can
// never produce a duplicate timer. ctx is the lifetime for all timer callbacks.
func (s *Scheduler) Start(ctx context.Context) error {
	entries, err := s.registry.List(ctx, s.tenantID)
	if err != nil {
		return fmt.Errorf("scheduler: recover registry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler == nil {
		return fmt.Errorf("scheduler: Start called before SetHandler")
	}
	s.ctx = ctx
	s.stopped = false

	now := s.nowF()
	for _, e := range entries {
		groupID := e.GroupID
		if _, armed := s.timers[groupID]; armed {
			continue
		}
		remaining := e.Remaining(now)
		if remaining <= 0 {
			log.Printf("scheduler: deadline for group %s overdue by %v, firing now", groupID, -remaining)
			go s.fire(groupID)
			continue
		}
		s.armLocked(groupID, remaining)
	}
	return nil
}

// Schedule persists the deadline and arms a timer for it, replacing any timer
// already armed for the group. The registry write happens before the timer is
// armed so a crash in between is recoverable at the next Start. Returns the
// absolute fire time. Non-blocking: the close runs on the scheduler's own
// timeline.
func (s *Scheduler) Schedule(ctx context.Context, groupID string, seconds int64) (time.Time, error) {
	fireAt, err := s.registry.Set(ctx, s.tenantID, groupID, seconds)
	if err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.ctx == nil {
		return time.Time{}, fmt.Errorf("scheduler: not started")
	}
	if t, ok := s.timers[groupID]; ok {
		t.Stop()
	}
	s.armLocked(groupID, time.Until(fireAt))
	return fireAt, nil
}

// Cancel removes the registry entry and disarms any in-memory timer for the
// group. If the timer already fired and its callback is running, cancellation
// has no retroactive effect; the callback's registry re-check settles the race.
func (s *Scheduler) Cancel(ctx context.Context, groupID string) error {
	if err := s.registry.Cancel(ctx, s.tenantID, groupID); err != nil {
		return err
	}
	s.disarm(groupID)
	return nil
}

// Stop disarms all timers. In-flight expiry callbacks are not interrupted;
// their registry entries were already removed or will be recovered at next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for groupID, t := range s.timers {
		t.Stop()
		delete(s.timers, groupID)
	}
}

// armLocked arms one timer for the group. Caller holds s.mu.
func (s *Scheduler) armLocked(groupID string, d time.Duration) {
	s.timers[groupID] = time.AfterFunc(d, func() {
		s.fire(groupID)
	})
}

func (s *Scheduler) disarm(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[groupID]; ok {
		t.Stop()
		delete(s.timers, groupID)
	}
}

// fire runs when a deadline elapses. The handler performs the
// re-check/close/remove sequence; the timer record is dropped afterwards so
// the key can be re-armed.
func (s *Scheduler) fire(groupID string) {
	s.mu.Lock()
	h := s.handler
	base := s.ctx
	stopped := s.stopped
	s.mu.Unlock()
	if stopped || h == nil || base == nil {
		return
	}

	ctx, cancel := context.WithTimeout(base, fireTimeout)
	defer cancel()
	if err := h.HandleDeadlineExpiry(ctx, s.tenantID, groupID); err != nil {
		log.Printf("scheduler: deadline expiry for group %s: %v", groupID, err)
	}
	s.disarm(groupID)
}
