// Package chat talks to the group-chat platform's Bot HTTP API. The rest of
// the system consumes it through the Transport interface so tests can swap in
// fakes and the core stays independent of the wire format.
package chat

import (
	"context"
	"time"
)

// ChatPermissions is the permission set applied to a whole group.
type ChatPermissions struct {
	CanSendMessages       bool `json:"can_send_messages"`
	CanSendMediaMessages  bool `json:"can_send_media_messages"`
	CanSendOtherMessages  bool `json:"can_send_other_messages"`
	CanAddWebPagePreviews bool `json:"can_add_web_page_previews"`
}

// OpenPermissions allows members to post normally; applied when verification
// starts so members can send their acknowledgements.
func OpenPermissions() ChatPermissions {
	return ChatPermissions{
		CanSendMessages:       true,
		CanSendMediaMessages:  true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
	}
}

// Admin is one chat administrator as reported by the platform.
type Admin struct {
	UserID    string
	Username  string
	FirstName string
}

// Transport is the outbound chat collaborator. Calls may fail per invocation
// (user left, bot lacks rights); callers decide whether a failure aborts the
// operation or is reported per-entity.
type Transport interface {
	// SendMessage posts text to the chat and returns the platform message id.
	SendMessage(ctx context.Context, chatID, text string) (string, error)
	// SetChatPermissions replaces the group-wide permission set.
	SetChatPermissions(ctx context.Context, chatID string, perms ChatPermissions) error
	// RestrictUser mutes the user in the chat until the given absolute time.
	RestrictUser(ctx context.Context, chatID, userID string, until time.Time) error
	// GetChatAdministrators returns the chat's current administrators.
	GetChatAdministrators(ctx context.Context, chatID string) ([]Admin, error)
}
