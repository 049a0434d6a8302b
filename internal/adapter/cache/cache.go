// Package cache invalidates the UI-side caches derived from session state.
// Entries are addressed by opaque tags such as "sessions" or "session:<id>".
package cache

import (
	"context"
	"sync"
)

// Tag names shared with the UI layer.
const (
	TagSessions      = "sessions"
	tagSessionPrefix = "session:"
)

// SessionTag returns the tag of the cached detail view of one session.
func SessionTag(sessionID string) string {
	return tagSessionPrefix + sessionID
}

// Invalidator drops cached entries by tag.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// Memory records invalidations and notifies subscribers. It is the default
// facility when the UI runs in process.
type Memory struct {
	mu          sync.Mutex
	invalidated []string
	subscribers []func(tag string)
}

// NewMemory creates an empty in-memory invalidator.
func NewMemory() *Memory {
	return &Memory{}
}

// Subscribe registers fn to be called for every invalidated tag.
func (m *Memory) Subscribe(fn func(tag string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Invalidate implements Invalidator.
func (m *Memory) Invalidate(_ context.Context, tags ...string) error {
	m.mu.Lock()
	m.invalidated = append(m.invalidated, tags...)
	subs := append([]func(string){}, m.subscribers...)
	m.mu.Unlock()

	for _, tag := range tags {
		for _, fn := range subs {
			fn(tag)
		}
	}
	return nil
}

// Invalidated returns every tag invalidated so far, in order.
func (m *Memory) Invalidated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.invalidated...)
}
