// Package domain defines the chat user profile cached per group.
package domain

import "strings"

// Profile is a chat user's display identity as last seen in a group.
type Profile struct {
	TenantID  string
	GroupID   string
	UserID    string
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns the best human-readable name for the user:
// first+last name, falling back to @username, falling back to the raw id.
func (p *Profile) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if full != "" {
		return full
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.UserID
}

// Mention returns an identifier usable in a group message to address the
// user: @username when known, otherwise the display name.
func (p *Profile) Mention() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.DisplayName()
}
