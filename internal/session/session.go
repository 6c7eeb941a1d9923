// Package session provides the in-memory session and history store for the
// relay gateway. Sessions hold bounded multi-turn conversation history plus
// tag and metadata annotations, and are safe for concurrent use.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ValidRoles contains all valid message roles.
var ValidRoles = []Role{RoleUser, RoleAssistant, RoleSystem}

// IsValid returns true if the role is a valid message role.
func (r Role) IsValid() bool {
	for _, valid := range ValidRoles {
		if r == valid {
			return true
		}
	}
	return false
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", &ValidationError{Field: "role", Reason: "must be one of user, assistant, system"}
	}
	return r, nil
}

// Message represents a single turn in a conversation. Messages are immutable
// once appended; the store never mutates one in place.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a conversation identified by an opaque id, holding
// ordered messages plus tags and metadata. Within a session, message
// timestamps are strictly increasing.
type Session struct {
	ID        string         `json:"id"`
	Messages  []Message      `json:"messages"`
	Tags      []string       `json:"tags"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// newSession creates an empty session. An empty id generates one.
func newSession(id string, now time.Time) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{
		ID:        id,
		Messages:  make([]Message, 0),
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MessageCount returns the number of messages in the session.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// LastMessage returns the most recent message, or nil if the session is empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// lastTimestamp returns the timestamp of the most recent message, or the zero
// time for an empty session.
func (s *Session) lastTimestamp() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}

// HasTag returns true if the session carries the given (normalized) tag.
func (s *Session) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:        s.ID,
		Messages:  make([]Message, len(s.Messages)),
		Metadata:  make(map[string]any, len(s.Metadata)),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	copy(clone.Messages, s.Messages)
	if len(s.Tags) > 0 {
		clone.Tags = append([]string(nil), s.Tags...)
	}
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// Summary is the listing view of a session: identity, counts and annotations
// but never the message bodies.
type Summary struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// summary builds the listing view of the session.
func (s *Session) summary() Summary {
	sum := Summary{
		ID:           s.ID,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if len(s.Tags) > 0 {
		sum.Tags = append([]string(nil), s.Tags...)
	}
	return sum
}

// NormalizeTag canonicalizes a tag: lowercase, trimmed, spaces and
// underscores collapsed to hyphens.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, "_", "-")
	return strings.Join(strings.Fields(tag), "-")
}
