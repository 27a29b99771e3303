// Package authz answers "is this user an administrator of this chat", backed
// by the chat platform's administrator list with a TTL cache per chat.
package authz

import (
	"context"
	"sync"
	"time"

	"groupwarden/internal/chat"
)

// Authorizer is the admin-check collaborator consumed by the command layer.
type Authorizer interface {
	IsAdmin(ctx context.Context, chatID, userID string) (bool, error)
	// Refresh drops the cached list for the chat and fetches it again.
	Refresh(ctx context.Context, chatID string) error
}

type cacheEntry struct {
	admins    map[string]struct{}
	expiresAt time.Time
}

// CachedAuthorizer resolves administrators via the transport and caches each
// chat's list for a TTL. A stale cache only delays admin-set changes by at
// most the TTL; /refresh_admins forces an immediate reload.
type CachedAuthorizer struct {
	transport chat.Transport
	ttl       time.Duration
	nowF      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewCachedAuthorizer returns an authorizer with the given cache TTL.
func NewCachedAuthorizer(transport chat.Transport, ttl time.Duration) *CachedAuthorizer {
	return &CachedAuthorizer{
		transport: transport,
		ttl:       ttl,
		nowF:      time.Now,
		cache:     make(map[string]cacheEntry),
	}
}

// IsAdmin reports whether userID currently administers chatID, fetching the
// administrator list when the cache is cold or expired.
func (a *CachedAuthorizer) IsAdmin(ctx context.Context, chatID, userID string) (bool, error) {
	a.mu.RLock()
	e, ok := a.cache[chatID]
	a.mu.RUnlock()
	if !ok || !e.expiresAt.After(a.nowF()) {
		if err := a.Refresh(ctx, chatID); err != nil {
			return false, err
		}
		a.mu.RLock()
		e = a.cache[chatID]
		a.mu.RUnlock()
	}
	_, isAdmin := e.admins[userID]
	return isAdmin, nil
}

// Refresh fetches the chat's administrator list and replaces the cache entry.
func (a *CachedAuthorizer) Refresh(ctx context.Context, chatID string) error {
	admins, err := a.transport.GetChatAdministrators(ctx, chatID)
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(admins))
	for _, ad := range admins {
		set[ad.UserID] = struct{}{}
	}
	a.mu.Lock()
	a.cache[chatID] = cacheEntry{admins: set, expiresAt: a.nowF().Add(a.ttl)}
	a.mu.Unlock()
	return nil
}
