package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// User is the sender of an inbound message.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Message is one inbound chat message.
type Message struct {
	MessageID int64 `json:"message_id"`
	From      User  `json:"from"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// ChatID returns the chat identifier as a string, the form the rest of the
// system uses for group IDs.
func (m *Message) ChatID() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

// Update is one long-poll update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// GetUpdates long-polls for new updates starting at offset. timeoutSeconds is
// the server-side hold time; the HTTP client waits a little longer so the
// long poll is not cut short by the default request timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("chat: bot token not configured")
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	body := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message"},
	}
	pollClient := &http.Client{Timeout: time.Duration(timeoutSeconds+10) * time.Second}
	raw, err := c.callWith(ctx, pollClient, "getUpdates", body)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("chat: decode getUpdates result: %w", err)
	}
	return updates, nil
}
