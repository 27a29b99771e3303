package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"groupwarden/internal/deadline/domain"
)

// memRegistry implements repository.Registry in memory for tests.
type memRegistry struct {
	mu      sync.Mutex
	entries map[string]domain.Entry // key tenant+":"+group
	nowF    func() time.Time
}

func newMemRegistry() *memRegistry {
	return &memRegistry{entries: make(map[string]domain.Entry), nowF: time.Now}
}

func (m *memRegistry) Set(ctx context.Context, tenantID, groupID string, seconds int64) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := domain.Entry{TenantID: tenantID, GroupID: groupID, Seconds: seconds, CreatedAt: m.nowF().UTC()}
	m.entries[tenantID+":"+groupID] = e
	return e.FireAt(), nil
}

func (m *memRegistry) Get(ctx context.Context, tenantID, groupID string) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tenantID+":"+groupID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memRegistry) Cancel(ctx context.Context, tenantID, groupID string) error {
	return m.RemoveIfPresent(ctx, tenantID, groupID)
}

func (m *memRegistry) RemoveIfPresent(ctx context.Context, tenantID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tenantID+":"+groupID)
	return nil
}

func (m *memRegistry) List(ctx context.Context, tenantID string) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entry
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

// recordingHandler counts expiries and removes the registry entry, like the
// real command-service handler.
type recordingHandler struct {
	mu       sync.Mutex
	registry *memRegistry
	fired    []string
}

func (h *recordingHandler) HandleDeadlineExpiry(ctx context.Context, tenantID, groupID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, _ := h.registry.Get(ctx, tenantID, groupID)
	if e == nil {
		return nil // lost the race to a cancel; nothing fired
	}
	h.fired = append(h.fired, tenantID+":"+groupID)
	return h.registry.RemoveIfPresent(ctx, tenantID, groupID)
}

func (h *recordingHandler) firedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fired)
}

func newStarted(t *testing.T, reg *memRegistry) (*Scheduler, *recordingHandler) {
	t.Helper()
	s := New(reg, "tenant-1")
	h := &recordingHandler{registry: reg}
	s.SetHandler(h)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, h
}

func TestSchedule_FiresExactlyOnce(t *testing.T) {
	reg := newMemRegistry()
	s, h := newStarted(t, reg)

	if _, err := s.Schedule(context.Background(), "group-1", 1); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)
	if got := h.firedCount(); got != 1 {
		t.Fatalf("fired %d times after deadline, want 1", got)
	}
	if e, _ := reg.Get(context.Background(), "tenant-1", "group-1"); e != nil {
		t.Error("registry entry should be removed after fire")
	}

	time.Sleep(1200 * time.Millisecond)
	if got := h.firedCount(); got != 1 {
		t.Errorf("fired %d times after second wait, want 1", got)
	}
}

func TestCancel_BeforeFire(t *testing.T) {
	reg := newMemRegistry()
	s, h := newStarted(t, reg)

	if _, err := s.Schedule(context.Background(), "group-1", 1); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := s.Cancel(context.Background(), "group-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)
	if got := h.firedCount(); got != 0 {
		t.Errorf("fired %d times after cancel, want 0", got)
	}
}

func TestCancel_AbsentEntryIsNoOp(t *testing.T) {
	reg := newMemRegistry()
	s, _ := newStarted(t, reg)
	if err := s.Cancel(context.Background(), "never-armed"); err != nil {
		t.Errorf("Cancel on absent entry: %v", err)
	}
}

func TestSchedule_ReplacesExistingTimer(t *testing.T) {
	reg := newMemRegistry()
	s, h := newStarted(t, reg)

	if _, err := s.Schedule(context.Background(), "group-1", 1); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	// Replace with a later deadline; the first timer must not fire.
	if _, err := s.Schedule(context.Background(), "group-1", 3); err != nil {
		t.Fatalf("Schedule replace: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)
	if got := h.firedCount(); got != 0 {
		t.Errorf("fired %d times before replacement deadline, want 0", got)
	}
}

func TestStart_FiresOverdueEntries(t *testing.T) {
	reg := newMemRegistry()
	// Simulate an entry set before a restart, already elapsed while down.
	reg.nowF = func() time.Time { return time.Now().Add(-time.Hour) }
	if _, err := reg.Set(context.Background(), "tenant-1", "group-1", 60); err != nil {
		t.Fatal(err)
	}
	reg.nowF = time.Now

	_, h := newStarted(t, reg)

	deadline := time.Now().Add(2 * time.Second)
	for h.firedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.firedCount(); got != 1 {
		t.Fatalf("overdue entry fired %d times at startup, want 1", got)
	}
	if e, _ := reg.Get(context.Background(), "tenant-1", "group-1"); e != nil {
		t.Error("registry entry should be removed after overdue fire")
	}
}

func TestStart_ReArmsFutureEntries(t *testing.T) {
	reg := newMemRegistry()
	if _, err := reg.Set(context.Background(), "tenant-1", "group-1", 1); err != nil {
		t.Fatal(err)
	}

	_, h := newStarted(t, reg)

	time.Sleep(1500 * time.Millisecond)
	if got := h.firedCount(); got != 1 {
		t.Errorf("recovered entry fired %d times, want 1", got)
	}
}

func TestStart_RequiresHandler(t *testing.T) {
	s := New(newMemRegistry(), "tenant-1")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start without handler should fail")
	}
}
