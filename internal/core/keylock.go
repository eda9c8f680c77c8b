package core

import (
	"sort"
	"sync"
)

// KeyLock serializes work per key, typically per time slot id. Several keys
// are always acquired in sorted order so overlapping callers cannot deadlock.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock constructs an empty lock table.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyEntry)}
}

// Lock acquires every distinct key and returns the matching release func.
func (k *KeyLock) Lock(keys ...string) (unlock func()) {
	ordered := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	entries := make([]*keyEntry, len(ordered))
	for i, key := range ordered {
		entries[i] = k.acquire(key)
		entries[i].mu.Lock()
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
			k.release(ordered[i])
		}
	}
}

func (k *KeyLock) acquire(key string) *keyEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyEntry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyLock) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Held reports how many keys currently have holders or waiters.
func (k *KeyLock) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
