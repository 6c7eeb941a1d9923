package session

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Tag and metadata operations. Both kinds of annotation live on the session
// shell, independent of conversational content, and feed the reverse indexes
// used by FindByTag and SearchMetadata. All writes here hold the store lock:
// annotation writes are rare next to appends and must stay consistent with
// the indexes.

// AddTags adds tags to a session, normalizing each one. Adding a tag the
// session already carries is a no-op success. Returns the resulting tag set
// in sorted order. Unknown ids return ErrNotFound.
func (st *Store) AddTags(id string, tags ...string) ([]string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for _, raw := range tags {
		tag := NormalizeTag(raw)
		if tag == "" {
			return nil, NewValidationError("tag", "must not be empty")
		}
		if e.s.HasTag(tag) {
			continue
		}
		e.s.Tags = append(e.s.Tags, tag)
		st.indexTag(tag, id)
		changed = true
	}
	if changed {
		sort.Strings(e.s.Tags)
		e.s.UpdatedAt = st.now()
	}
	return append([]string(nil), e.s.Tags...), nil
}

// RemoveTags removes tags from a session. Removing an absent tag is a no-op
// success. Returns the resulting tag set.
func (st *Store) RemoveTags(id string, tags ...string) ([]string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for _, raw := range tags {
		tag := NormalizeTag(raw)
		for i, t := range e.s.Tags {
			if t == tag {
				e.s.Tags = append(e.s.Tags[:i], e.s.Tags[i+1:]...)
				st.unindexTag(tag, id)
				changed = true
				break
			}
		}
	}
	if changed {
		e.s.UpdatedAt = st.now()
	}
	return append([]string(nil), e.s.Tags...), nil
}

// Tags returns the session's tag set in sorted order.
func (st *Store) Tags(id string) ([]string, error) {
	e := st.lookup(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.s.Tags...), nil
}

// SetMetadata writes key/value pairs into a session's metadata,
// last-write-wins per key.
func (st *Store) SetMetadata(id string, values map[string]any) error {
	if len(values) == 0 {
		return NewValidationError("metadata", "must not be empty")
	}
	for k := range values {
		if k == "" {
			return NewValidationError("metadata", "keys must not be empty")
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for k, v := range values {
		if prev, ok := e.s.Metadata[k]; ok {
			st.unindexMeta(k, prev, id)
		}
		e.s.Metadata[k] = v
		st.indexMeta(k, v, id)
	}
	e.s.UpdatedAt = st.now()
	return nil
}

// DeleteMetadata removes the named keys from a session's metadata, or all
// metadata when no keys are given. Absent keys are ignored.
func (st *Store) DeleteMetadata(id string, keys ...string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(keys) == 0 {
		for k := range e.s.Metadata {
			keys = append(keys, k)
		}
	}
	changed := false
	for _, k := range keys {
		if prev, ok := e.s.Metadata[k]; ok {
			st.unindexMeta(k, prev, id)
			delete(e.s.Metadata, k)
			changed = true
		}
	}
	if changed {
		e.s.UpdatedAt = st.now()
	}
	return nil
}

// Metadata returns a copy of the session's metadata map.
func (st *Store) Metadata(id string) (map[string]any, error) {
	e := st.lookup(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]any, len(e.s.Metadata))
	for k, v := range e.s.Metadata {
		out[k] = v
	}
	return out, nil
}

// canonicalValue encodes a metadata value into the string form used by the
// reverse index, so that equal values compare equal regardless of how they
// entered the store (live write vs JSON import).
func canonicalValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Index helpers. Caller holds st.mu for writing.

func (st *Store) indexTag(tag, id string) {
	ids, ok := st.tagIndex[tag]
	if !ok {
		ids = make(map[string]struct{})
		st.tagIndex[tag] = ids
	}
	ids[id] = struct{}{}
}

func (st *Store) unindexTag(tag, id string) {
	if ids, ok := st.tagIndex[tag]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(st.tagIndex, tag)
		}
	}
}

func (st *Store) indexMeta(key string, value any, id string) {
	values, ok := st.metaIndex[key]
	if !ok {
		values = make(map[string]map[string]struct{})
		st.metaIndex[key] = values
	}
	canon := canonicalValue(value)
	ids, ok := values[canon]
	if !ok {
		ids = make(map[string]struct{})
		values[canon] = ids
	}
	ids[id] = struct{}{}
}

func (st *Store) unindexMeta(key string, value any, id string) {
	values, ok := st.metaIndex[key]
	if !ok {
		return
	}
	canon := canonicalValue(value)
	if ids, ok := values[canon]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(values, canon)
		}
	}
	if len(values) == 0 {
		delete(st.metaIndex, key)
	}
}

// dropFromIndexes removes every index entry for sess. Caller holds st.mu and
// the entry lock.
func (st *Store) dropFromIndexes(sess *Session) {
	for _, tag := range sess.Tags {
		st.unindexTag(tag, sess.ID)
	}
	for k, v := range sess.Metadata {
		st.unindexMeta(k, v, sess.ID)
	}
}
