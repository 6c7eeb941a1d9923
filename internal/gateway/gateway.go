// Package gateway ties the session store, context-window selection and the
// model provider into the chat request flow.
package gateway

import (
	"context"

	"github.com/anthropics/relay/internal/prompt"
	"github.com/anthropics/relay/internal/provider"
	"github.com/anthropics/relay/internal/session"
)

// UseDefaultWindow selects the gateway's configured context window.
const UseDefaultWindow = -1

// Config holds gateway settings.
type Config struct {
	// Window is the default context window in conversation turns.
	Window int

	// SystemPrompt is sent with every provider call when set.
	SystemPrompt string
}

// Gateway drives a chat turn end to end.
type Gateway struct {
	store    *session.Store
	provider provider.Provider
	cfg      Config
}

// New creates a gateway over a store and a model provider.
func New(store *session.Store, prov provider.Provider, cfg Config) *Gateway {
	return &Gateway{store: store, provider: prov, cfg: cfg}
}

// ChatOptions tunes a single chat call.
type ChatOptions struct {
	// Window overrides the configured context window for this call.
	// UseDefaultWindow keeps the configured value; 0 sends no history.
	Window int

	// Params are passed through to the provider.
	Params provider.Params
}

// Result reports one completed chat turn.
type Result struct {
	SessionID string
	User      session.Message
	Assistant session.Message
}

// Chat appends the prompt as a user message, calls the provider with the
// selected context window, appends the reply and returns both messages.
//
// The provider call happens between the two appends, outside any session
// lock. If it fails or the context is cancelled the user message stays in
// history: the record reflects what was sent even when no reply followed.
func (g *Gateway) Chat(ctx context.Context, sessionID, userPrompt string, opts ChatOptions) (*Result, error) {
	window := opts.Window
	if window == UseDefaultWindow {
		window = g.cfg.Window
	}
	if err := prompt.ValidateWindow(window); err != nil {
		return nil, err
	}

	if sessionID == "" {
		return nil, session.NewValidationError("session_id", "must not be empty")
	}

	userMsg, err := g.store.Append(sessionID, session.RoleUser, userPrompt)
	if err != nil {
		return nil, err
	}

	history, err := g.store.History(sessionID, 0)
	if err != nil {
		return nil, err
	}
	// Exclude the user message just appended; it travels as the new prompt.
	// Per-session timestamps are strictly increasing, so trimming everything
	// at or past its timestamp drops exactly that message plus whatever a
	// concurrent writer pushed behind it. A concurrent ClearHistory may have
	// emptied the slice entirely; that simply means no prior context.
	for len(history) > 0 && !history[len(history)-1].Timestamp.Before(userMsg.Timestamp) {
		history = history[:len(history)-1]
	}

	ctxMsgs, err := prompt.Window(history, window)
	if err != nil {
		return nil, err
	}

	reply, err := g.provider.Complete(ctx, provider.Request{
		SystemPrompt: g.cfg.SystemPrompt,
		Context:      ctxMsgs,
		Prompt:       userPrompt,
		Params:       opts.Params,
	})
	if err != nil {
		return nil, err
	}

	assistantMsg, err := g.store.Append(sessionID, session.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}

	return &Result{SessionID: sessionID, User: userMsg, Assistant: assistantMsg}, nil
}
