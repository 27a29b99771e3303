// Package keylock provides per-key mutual exclusion for (tenant, group) pairs.
// Session and deadline mutations for the same group serialize through one
// KeyLock instance; different groups proceed independently.
package keylock

import "sync"

// KeyLock hands out one mutex per key. Mutexes are created on first use and
// kept for the life of the process; the key space (groups a bot moderates) is
// small and bounded.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyLock) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key. Panics if the key was never locked.
func (k *KeyLock) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
