package session

import (
	"sort"
	"time"
)

// Query-side operations over the whole store. Listing and stats run over a
// point-in-time sweep of the session map: a session mutated mid-sweep is
// observed either before or after its mutation, never half-written, and no
// global stop-the-world lock is taken.

// Filter narrows a session listing. Zero-valued fields are inactive; active
// fields combine with AND.
type Filter struct {
	MinMessages int       // sessions with at least this many messages
	MaxMessages int       // sessions with at most this many messages; 0 disables
	Since       time.Time // sessions with updated_at >= Since
	Tag         string    // sessions carrying this tag
}

// matches reports whether a summary passes the filter.
func (f Filter) matches(sum Summary) bool {
	if sum.MessageCount < f.MinMessages {
		return false
	}
	if f.MaxMessages > 0 && sum.MessageCount > f.MaxMessages {
		return false
	}
	if !f.Since.IsZero() && sum.UpdatedAt.Before(f.Since) {
		return false
	}
	if f.Tag != "" {
		want := NormalizeTag(f.Tag)
		found := false
		for _, t := range sum.Tags {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// List returns summaries of every session passing the filter, ordered by
// most recently updated first. Summaries never carry message bodies.
func (st *Store) List(f Filter) []Summary {
	st.mu.RLock()
	entries := make([]*entry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		sum := e.s.summary()
		e.mu.Unlock()
		if f.matches(sum) {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Stats aggregates over the current store contents. Computed on demand,
// never cached.
type Stats struct {
	TotalSessions  int       `json:"total_sessions"`
	TotalMessages  int       `json:"total_messages"`
	AvgMessages    float64   `json:"avg_messages_per_session"`
	EmptySessions  int       `json:"empty_sessions"`
	TaggedSessions int       `json:"tagged_sessions"`
	LargestSession int       `json:"largest_session"`
	LastUpdated    time.Time `json:"last_updated,omitempty"`
	HistoryLimit   int       `json:"max_history_per_session"`
}

// Stats computes aggregate statistics over all sessions.
func (st *Store) Stats() Stats {
	stats := Stats{HistoryLimit: st.maxHistory}

	st.mu.RLock()
	entries := make([]*entry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		n := len(e.s.Messages)
		tagged := len(e.s.Tags) > 0
		updated := e.s.UpdatedAt
		e.mu.Unlock()

		stats.TotalSessions++
		stats.TotalMessages += n
		if n == 0 {
			stats.EmptySessions++
		}
		if n > stats.LargestSession {
			stats.LargestSession = n
		}
		if tagged {
			stats.TaggedSessions++
		}
		if updated.After(stats.LastUpdated) {
			stats.LastUpdated = updated
		}
	}
	if stats.TotalSessions > 0 {
		stats.AvgMessages = float64(stats.TotalMessages) / float64(stats.TotalSessions)
	}
	return stats
}

// FindByTag returns the ids of every session carrying the tag, sorted.
// Served from the incremental tag index.
func (st *Store) FindByTag(tag string) []string {
	tag = NormalizeTag(tag)

	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.tagIndex[tag]))
	for id := range st.tagIndex[tag] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SearchMetadata returns the ids of sessions whose metadata matches every
// filter key/value pair. A session missing any filter key is excluded.
// Served from the incremental metadata index.
func (st *Store) SearchMetadata(filters map[string]any) []string {
	if len(filters) == 0 {
		return []string{}
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	var result map[string]struct{}
	for k, v := range filters {
		ids := st.metaIndex[k][canonicalValue(v)]
		if len(ids) == 0 {
			return []string{}
		}
		if result == nil {
			result = make(map[string]struct{}, len(ids))
			for id := range ids {
				result[id] = struct{}{}
			}
			continue
		}
		for id := range result {
			if _, ok := ids[id]; !ok {
				delete(result, id)
			}
		}
		if len(result) == 0 {
			return []string{}
		}
	}

	out := make([]string, 0, len(result))
	for id := range result {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
