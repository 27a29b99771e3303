package authz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"groupwarden/internal/chat"
)

// mockTransport implements chat.Transport for tests; only admins is used here.
type mockTransport struct {
	mu     sync.Mutex
	admins []chat.Admin
	calls  int
	err    error
}

func (m *mockTransport) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	return "", nil
}

func (m *mockTransport) SetChatPermissions(ctx context.Context, chatID string, perms chat.ChatPermissions) error {
	return nil
}

func (m *mockTransport) RestrictUser(ctx context.Context, chatID, userID string, until time.Time) error {
	return nil
}

func (m *mockTransport) GetChatAdministrators(ctx context.Context, chatID string) ([]chat.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.admins, nil
}

func (m *mockTransport) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestIsAdmin_CachesWithinTTL(t *testing.T) {
	transport := &mockTransport{admins: []chat.Admin{{UserID: "1"}}}
	a := NewCachedAuthorizer(transport, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := a.IsAdmin(context.Background(), "chat-1", "1")
		if err != nil {
			t.Fatalf("IsAdmin: %v", err)
		}
		if !ok {
			t.Fatal("IsAdmin = false, want true")
		}
	}
	if got := transport.callCount(); got != 1 {
		t.Errorf("transport calls = %d, want 1 (cached)", got)
	}

	ok, err := a.IsAdmin(context.Background(), "chat-1", "2")
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if ok {
		t.Error("IsAdmin for non-admin = true, want false")
	}
}

func TestIsAdmin_RefetchesAfterExpiry(t *testing.T) {
	transport := &mockTransport{admins: []chat.Admin{{UserID: "1"}}}
	a := NewCachedAuthorizer(transport, time.Minute)
	now := time.Now()
	a.nowF = func() time.Time { return now }

	if _, err := a.IsAdmin(context.Background(), "chat-1", "1"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := a.IsAdmin(context.Background(), "chat-1", "1"); err != nil {
		t.Fatal(err)
	}
	if got := transport.callCount(); got != 2 {
		t.Errorf("transport calls = %d, want 2 (expired)", got)
	}
}

func TestIsAdmin_TransportError(t *testing.T) {
	transport := &mockTransport{err: errors.New("api down")}
	a := NewCachedAuthorizer(transport, time.Minute)
	if _, err := a.IsAdmin(context.Background(), "chat-1", "1"); err == nil {
		t.Fatal("expected transport error to surface")
	}
}

func TestRefresh_ReplacesCache(t *testing.T) {
	transport := &mockTransport{admins: []chat.Admin{{UserID: "1"}}}
	a := NewCachedAuthorizer(transport, time.Minute)

	if _, err := a.IsAdmin(context.Background(), "chat-1", "1"); err != nil {
		t.Fatal(err)
	}
	transport.mu.Lock()
	transport.admins = []chat.Admin{{UserID: "2"}}
	transport.mu.Unlock()

	if err := a.Refresh(context.Background(), "chat-1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	ok, _ := a.IsAdmin(context.Background(), "chat-1", "2")
	if !ok {
		t.Error("new admin not visible after Refresh")
	}
	ok, _ = a.IsAdmin(context.Background(), "chat-1", "1")
	if ok {
		t.Error("old admin still visible after Refresh")
	}
}
