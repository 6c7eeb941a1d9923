package session

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxHistory is the per-session message cap applied when no limit is
// configured.
const DefaultMaxHistory = 20

// entry pairs a session with its own mutex so that appends to different
// sessions never contend. Lock order is always store lock before entry lock.
type entry struct {
	mu sync.Mutex
	s  *Session
}

// Store is the single source of truth for all sessions. It is an in-memory
// map guarded by an RWMutex, with a per-session mutex arena for message
// mutation. State lives for the life of the process; nothing is persisted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	// Reverse indexes, maintained incrementally on tag/metadata writes.
	tagIndex  map[string]map[string]struct{}            // tag -> session ids
	metaIndex map[string]map[string]map[string]struct{} // key -> canonical value -> ids

	maxHistory int
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store. maxHistory bounds the number of messages
// retained per session; values < 1 fall back to DefaultMaxHistory.
func NewStore(maxHistory int, opts ...Option) *Store {
	if maxHistory < 1 {
		maxHistory = DefaultMaxHistory
	}
	s := &Store{
		sessions:   make(map[string]*entry),
		tagIndex:   make(map[string]map[string]struct{}),
		metaIndex:  make(map[string]map[string]map[string]struct{}),
		maxHistory: maxHistory,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxHistory returns the per-session message cap.
func (st *Store) MaxHistory() int { return st.maxHistory }

// lookup returns the entry for id, or nil.
func (st *Store) lookup(id string) *entry {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// getOrCreate returns the entry for id, creating the session if needed.
// An empty id always creates a fresh session with a generated id.
func (st *Store) getOrCreate(id string) *entry {
	if id != "" {
		if e := st.lookup(id); e != nil {
			return e
		}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if id != "" {
		if e, ok := st.sessions[id]; ok {
			return e
		}
	}
	e := &entry{s: newSession(id, st.now())}
	st.sessions[e.s.ID] = e
	return e
}

// Create explicitly creates a session. If id is empty a new id is generated.
// Creating an id that already exists returns the existing session.
func (st *Store) Create(id string) *Session {
	e := st.getOrCreate(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone()
}

// Get retrieves a session by id. Reads never create sessions: an unknown id
// returns ErrNotFound.
func (st *Store) Get(id string) (*Session, error) {
	e := st.lookup(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

// Append adds a message to a session, creating the session if it does not
// exist. The timestamp is assigned here, strictly after the session's current
// newest message; when the wall clock has not advanced the timestamp is
// nudged forward a nanosecond. If the append pushes the session past the
// history cap the oldest messages are evicted silently.
func (st *Store) Append(id string, role Role, content string) (Message, error) {
	if !role.IsValid() {
		return Message{}, &ValidationError{Field: "role", Index: -1, Reason: "must be one of user, assistant, system"}
	}
	if content == "" && role != RoleSystem {
		return Message{}, &ValidationError{Field: "content", Index: -1, Reason: "must not be empty"}
	}

	e := st.getOrCreate(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	msg := st.appendLocked(e.s, Message{Role: role, Content: content})
	return msg, nil
}

// appendLocked pushes a message onto sess, assigning a monotonic timestamp
// when the message carries none, and evicts down to the cap. Caller holds the
// entry lock.
func (st *Store) appendLocked(sess *Session, msg Message) Message {
	now := st.now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if last := sess.lastTimestamp(); !msg.Timestamp.After(last) {
		msg.Timestamp = last.Add(time.Nanosecond)
	}

	sess.Messages = append(sess.Messages, msg)
	if over := len(sess.Messages) - st.maxHistory; over > 0 {
		// Evict FIFO into a fresh slice so the old backing array is released.
		kept := make([]Message, st.maxHistory)
		copy(kept, sess.Messages[over:])
		sess.Messages = kept
	}
	sess.UpdatedAt = now
	return msg
}

// History returns up to limit of the most recent messages for a session, in
// conversation order. limit < 1 returns all retained messages. An unknown id
// returns ErrNotFound.
func (st *Store) History(id string, limit int) ([]Message, error) {
	e := st.lookup(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	msgs := e.s.Messages
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// ClearHistory empties a session's messages but keeps the session shell
// (id, tags, metadata) alive and queryable.
func (st *Store) ClearHistory(id string) error {
	e := st.lookup(id)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Messages = make([]Message, 0)
	e.s.UpdatedAt = st.now()
	return nil
}

// Import commits pre-validated messages into a session, creating it if
// absent. With overwrite the existing history is replaced; otherwise the
// messages are appended after the existing history. Supplied timestamps are
// preserved when they keep the session's ordering invariant and nudged
// forward when they do not; zero timestamps are assigned at insert. The
// history cap applies as for live appends. Returns the number of messages
// committed.
func (st *Store) Import(id string, msgs []Message, overwrite bool) (int, error) {
	for i, m := range msgs {
		if !m.Role.IsValid() {
			return 0, &ValidationError{Field: "role", Index: i, Reason: "must be one of user, assistant, system"}
		}
		if m.Content == "" && m.Role != RoleSystem {
			return 0, &ValidationError{Field: "content", Index: i, Reason: "must not be empty"}
		}
	}

	e := st.getOrCreate(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if overwrite {
		e.s.Messages = make([]Message, 0, len(msgs))
	}
	for _, m := range msgs {
		st.appendLocked(e.s, m)
	}
	e.s.UpdatedAt = st.now()
	return len(msgs), nil
}

// Delete removes a session entirely, including its tags and metadata.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	st.dropFromIndexes(e.s)
	e.mu.Unlock()
	delete(st.sessions, id)
	return nil
}

// BulkDeleteResult reports the partial outcome of a bulk delete.
type BulkDeleteResult struct {
	Deleted []string `json:"deleted"`
	Missing []string `json:"missing"`
}

// BulkDelete removes every listed session that exists and reports the ids
// that did not, as partial success rather than failure. Ids in the result
// are sorted and de-duplicated.
func (st *Store) BulkDelete(ids []string) BulkDeleteResult {
	seen := make(map[string]struct{}, len(ids))
	res := BulkDeleteResult{Deleted: []string{}, Missing: []string{}}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := st.Delete(id); err != nil {
			res.Missing = append(res.Missing, id)
		} else {
			res.Deleted = append(res.Deleted, id)
		}
	}
	sort.Strings(res.Deleted)
	sort.Strings(res.Missing)
	return res
}

// Count returns the number of sessions in the store.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Snapshot returns deep copies of every session, in id order. Concurrent
// mutation may or may not be observed; each copied session is internally
// consistent.
func (st *Store) Snapshot() []*Session {
	st.mu.RLock()
	entries := make([]*entry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	out := make([]*Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.s.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore installs a session snapshot wholesale, replacing any session with
// the same id and rebuilding its index entries. Used by archive restore; the
// history cap still applies.
func (st *Store) Restore(sess *Session) error {
	if sess == nil || sess.ID == "" {
		return NewValidationError("id", "must not be empty")
	}
	clone := sess.Clone()
	if clone.Metadata == nil {
		clone.Metadata = make(map[string]any)
	}
	if over := len(clone.Messages) - st.maxHistory; over > 0 {
		clone.Messages = clone.Messages[over:]
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if prev, ok := st.sessions[clone.ID]; ok {
		prev.mu.Lock()
		st.dropFromIndexes(prev.s)
		prev.mu.Unlock()
	}
	st.sessions[clone.ID] = &entry{s: clone}
	for _, tag := range clone.Tags {
		st.indexTag(tag, clone.ID)
	}
	for k, v := range clone.Metadata {
		st.indexMeta(k, v, clone.ID)
	}
	return nil
}
