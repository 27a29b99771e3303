package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupwarden/internal/chat"
	userdomain "groupwarden/internal/user/domain"
)

type mockTransport struct {
	restricted []string
	untils     []time.Time
	failFor    map[string]error
}

func (m *mockTransport) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	return "", nil
}

func (m *mockTransport) SetChatPermissions(ctx context.Context, chatID string, perms chat.ChatPermissions) error {
	return nil
}

func (m *mockTransport) RestrictUser(ctx context.Context, chatID, userID string, until time.Time) error {
	if err, ok := m.failFor[userID]; ok {
		return err
	}
	m.restricted = append(m.restricted, userID)
	m.untils = append(m.untils, until)
	return nil
}

func (m *mockTransport) GetChatAdministrators(ctx context.Context, chatID string) ([]chat.Admin, error) {
	return nil, nil
}

func TestEnforcer_MuteAll(t *testing.T) {
	transport := &mockTransport{
		failFor: map[string]error{"2": errors.New("user is an administrator")},
	}
	enforcer := NewEnforcer(transport)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	enforcer.nowF = func() time.Time { return base }

	profiles := []*userdomain.Profile{
		{UserID: "1", Username: "alice"},
		{UserID: "2", FirstName: "Bob"},
		{UserID: "3", FirstName: "Carol", LastName: "Jones"},
	}
	result := enforcer.MuteAll(context.Background(), "-100", profiles, 0)

	if len(result.Muted) != 2 {
		t.Fatalf("muted = %v, want 2 entries", result.Muted)
	}
	if result.Muted[0] != "@alice" || result.Muted[1] != "Carol Jones" {
		t.Errorf("muted = %v", result.Muted)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "Bob" {
		t.Errorf("failed = %v, want [Bob]", result.Failed)
	}
	// Zero duration falls back to the default.
	wantUntil := base.Add(DefaultMuteDuration)
	for _, u := range transport.untils {
		if !u.Equal(wantUntil) {
			t.Errorf("until = %v, want %v", u, wantUntil)
		}
	}
}

func TestEnforcer_MuteAll_CustomDuration(t *testing.T) {
	transport := &mockTransport{}
	enforcer := NewEnforcer(transport)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	enforcer.nowF = func() time.Time { return base }

	enforcer.MuteAll(context.Background(), "-100", []*userdomain.Profile{{UserID: "9"}}, 2*time.Hour)

	if len(transport.untils) != 1 || !transport.untils[0].Equal(base.Add(2*time.Hour)) {
		t.Errorf("untils = %v", transport.untils)
	}
}

func TestEnforcer_MuteAll_EmptyBatch(t *testing.T) {
	enforcer := NewEnforcer(&mockTransport{})
	result := enforcer.MuteAll(context.Background(), "-100", nil, time.Hour)
	if len(result.Muted) != 0 || len(result.Failed) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}
