package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client implements Transport against a Telegram-style Bot HTTP API:
// POST {base}/bot{token}/{method} with a JSON body, responses wrapped in
// {"ok": bool, "result": ..., "description": ...}.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient returns a client for the given API base URL and bot token.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// SendMessage posts text to the chat and returns the message id.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	raw, err := c.call(ctx, "sendMessage", body)
	if err != nil {
		return "", err
	}
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("chat: decode sendMessage result: %w", err)
	}
	return strconv.FormatInt(result.MessageID, 10), nil
}

// SetChatPermissions replaces the group-wide permission set.
func (c *Client) SetChatPermissions(ctx context.Context, chatID string, perms ChatPermissions) error {
	body := map[string]any{
		"chat_id":     chatID,
		"permissions": perms,
	}
	_, err := c.call(ctx, "setChatPermissions", body)
	return err
}

// RestrictUser mutes the user until the given absolute time by restricting
// all send permissions.
func (c *Client) RestrictUser(ctx context.Context, chatID, userID string, until time.Time) error {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("chat: user id %q is not numeric: %w", userID, err)
	}
	body := map[string]any{
		"chat_id":     chatID,
		"user_id":     uid,
		"until_date":  until.Unix(),
		"permissions": ChatPermissions{},
	}
	_, err = c.call(ctx, "restrictChatMember", body)
	return err
}

// GetChatAdministrators returns the chat's current administrators.
func (c *Client) GetChatAdministrators(ctx context.Context, chatID string) ([]Admin, error) {
	raw, err := c.call(ctx, "getChatAdministrators", map[string]any{"chat_id": chatID})
	if err != nil {
		return nil, err
	}
	var members []struct {
		User struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"user"`
	}
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("chat: decode getChatAdministrators result: %w", err)
	}
	out := make([]Admin, 0, len(members))
	for _, m := range members {
		out = append(out, Admin{
			UserID:    strconv.FormatInt(m.User.ID, 10),
			Username:  m.User.Username,
			FirstName: m.User.FirstName,
		})
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	return c.callWith(ctx, c.HTTPClient, method, body)
}

func (c *Client) callWith(ctx context.Context, httpClient *http.Client, method string, body any) (json.RawMessage, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("chat: bot token not configured")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.BaseURL, c.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var api apiResponse
	if err := json.Unmarshal(payload, &api); err != nil {
		return nil, fmt.Errorf("chat: %s failed status=%d body=%s", method, resp.StatusCode, string(payload))
	}
	if !api.OK {
		return nil, fmt.Errorf("chat: %s failed status=%d: %s", method, resp.StatusCode, api.Description)
	}
	return api.Result, nil
}
