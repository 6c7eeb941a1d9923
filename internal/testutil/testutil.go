// Package testutil provides shared helpers for relay tests: a controllable
// clock, a scripted model provider and store seeding.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/relay/internal/provider"
	"github.com/anthropics/relay/internal/session"
)

// Clock is a fake clock that advances a fixed step on every read, so
// timestamp-dependent behavior is deterministic.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock creates a clock starting at start, advancing step per read.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current fake time and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// NewStore creates a session store on a deterministic clock.
func NewStore(t *testing.T, maxHistory int) *session.Store {
	t.Helper()
	clock := NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Second)
	return session.NewStore(maxHistory, session.WithClock(clock.Now))
}

// SeedConversation appends count messages to a session, alternating user and
// assistant roles starting with user. Contents are "msg-1".."msg-N".
func SeedConversation(t *testing.T, store *session.Store, id string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		if _, err := store.Append(id, role, fmt.Sprintf("msg-%d", i+1)); err != nil {
			t.Fatalf("SeedConversation: append %d: %v", i+1, err)
		}
	}
}

// ScriptedProvider is a provider.Provider that replays canned replies and
// records the requests it received.
type ScriptedProvider struct {
	mu       sync.Mutex
	replies  []string
	idx      int
	err      error
	Requests []provider.Request
}

// NewScriptedProvider creates a provider that returns the given replies in
// order, repeating the last one when exhausted.
func NewScriptedProvider(replies ...string) *ScriptedProvider {
	return &ScriptedProvider{replies: replies}
}

// Fail makes every subsequent Complete call return err.
func (p *ScriptedProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Name returns the provider identifier.
func (p *ScriptedProvider) Name() string { return "scripted" }

// Complete records the request and returns the next scripted reply.
func (p *ScriptedProvider) Complete(ctx context.Context, req provider.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &provider.Error{Provider: p.Name(), Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if p.err != nil {
		return "", &provider.Error{Provider: p.Name(), Err: p.err}
	}
	if len(p.replies) == 0 {
		return "", &provider.Error{Provider: p.Name(), Err: provider.ErrEmptyReply}
	}
	reply := p.replies[p.idx]
	if p.idx < len(p.replies)-1 {
		p.idx++
	}
	return reply, nil
}

// List returns a static model list.
func (p *ScriptedProvider) List(ctx context.Context) ([]string, error) {
	return []string{"scripted-model"}, nil
}
