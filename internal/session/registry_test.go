package session

import (
	"fmt"
	"testing"
	"time"
)

func seed(t *testing.T, store *Store, id string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		if _, err := store.Append(id, RoleUser, fmt.Sprintf("msg-%d", i+1)); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestListMessageCountFilters(t *testing.T) {
	store := newTestStore(0)
	seed(t, store, "s1", 1)
	seed(t, store, "s2", 3)
	seed(t, store, "s3", 5)
	seed(t, store, "s4", 8)

	got := store.List(Filter{MinMessages: 2, MaxMessages: 5})
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	for _, sum := range got {
		if sum.MessageCount < 2 || sum.MessageCount > 5 {
			t.Errorf("session %s count %d outside [2,5]", sum.ID, sum.MessageCount)
		}
	}
}

func TestListSinceFilterComposes(t *testing.T) {
	store := newTestStore(0)
	seed(t, store, "old", 3)

	cutoff, _ := store.Get("old")
	since := cutoff.UpdatedAt.Add(time.Millisecond)

	seed(t, store, "new", 3)
	seed(t, store, "new-but-small", 1)

	got := store.List(Filter{MinMessages: 2, Since: since})
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("expected only [new], got %+v", got)
	}
}

func TestListSummariesOmitBodies(t *testing.T) {
	store := newTestStore(0)
	seed(t, store, "s1", 2)
	store.AddTags("s1", "alpha")

	got := store.List(Filter{})
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	sum := got[0]
	if sum.ID != "s1" || sum.MessageCount != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if len(sum.Tags) != 1 || sum.Tags[0] != "alpha" {
		t.Errorf("expected tags [alpha], got %v", sum.Tags)
	}
	if sum.CreatedAt.IsZero() || sum.UpdatedAt.IsZero() {
		t.Error("expected timestamps on summary")
	}
}

func TestListOrderedByRecency(t *testing.T) {
	store := newTestStore(0)
	seed(t, store, "first", 1)
	seed(t, store, "second", 1)
	seed(t, store, "third", 1)

	got := store.List(Filter{})
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0].ID != "third" || got[2].ID != "first" {
		t.Errorf("expected most recent first, got %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestEmptySessionIsQueryable(t *testing.T) {
	store := newTestStore(0)
	store.Create("empty")
	store.AddTags("empty", "fresh")

	got := store.List(Filter{})
	if len(got) != 1 || got[0].MessageCount != 0 {
		t.Errorf("expected one empty session in listing, got %+v", got)
	}
	if ids := store.FindByTag("fresh"); len(ids) != 1 || ids[0] != "empty" {
		t.Errorf("expected [empty], got %v", ids)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(0)

	stats := store.Stats()
	if stats.TotalSessions != 0 || stats.TotalMessages != 0 || stats.AvgMessages != 0 {
		t.Errorf("expected zero stats for empty store, got %+v", stats)
	}

	seed(t, store, "s1", 4)
	seed(t, store, "s2", 2)
	store.Create("s3")
	store.AddTags("s2", "tagged")

	stats = store.Stats()
	if stats.TotalSessions != 3 {
		t.Errorf("expected 3 sessions, got %d", stats.TotalSessions)
	}
	if stats.TotalMessages != 6 {
		t.Errorf("expected 6 messages, got %d", stats.TotalMessages)
	}
	if stats.AvgMessages != 2.0 {
		t.Errorf("expected avg 2.0, got %f", stats.AvgMessages)
	}
	if stats.EmptySessions != 1 {
		t.Errorf("expected 1 empty session, got %d", stats.EmptySessions)
	}
	if stats.TaggedSessions != 1 {
		t.Errorf("expected 1 tagged session, got %d", stats.TaggedSessions)
	}
	if stats.LargestSession != 4 {
		t.Errorf("expected largest 4, got %d", stats.LargestSession)
	}
}

func TestFindByTag(t *testing.T) {
	store := newTestStore(0)
	store.Create("a")
	store.Create("b")
	store.Create("c")
	store.AddTags("a", "Prod Env")
	store.AddTags("b", "prod-env")

	ids := store.FindByTag("PROD_ENV")
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("expected [a b], got %v", ids)
	}
	if ids := store.FindByTag("absent"); len(ids) != 0 {
		t.Errorf("expected no matches, got %v", ids)
	}
}

func TestSearchMetadataAndSemantics(t *testing.T) {
	store := newTestStore(0)
	store.Create("a")
	store.Create("b")
	store.Create("c")
	store.SetMetadata("a", map[string]any{"env": "prod", "team": "infra"})
	store.SetMetadata("b", map[string]any{"env": "prod"})
	store.SetMetadata("c", map[string]any{"env": "dev", "team": "infra"})

	ids := store.SearchMetadata(map[string]any{"env": "prod"})
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("expected [a b], got %v", ids)
	}

	// All keys must match; a session missing a key is excluded.
	ids = store.SearchMetadata(map[string]any{"env": "prod", "team": "infra"})
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("expected [a], got %v", ids)
	}

	if ids := store.SearchMetadata(map[string]any{"missing": "x"}); len(ids) != 0 {
		t.Errorf("expected no matches, got %v", ids)
	}
	if ids := store.SearchMetadata(nil); len(ids) != 0 {
		t.Errorf("expected no matches for empty filter, got %v", ids)
	}
}

func TestIndexesFollowDeletes(t *testing.T) {
	store := newTestStore(0)
	store.Create("a")
	store.AddTags("a", "x")
	store.SetMetadata("a", map[string]any{"env": "prod"})

	store.Delete("a")
	if ids := store.FindByTag("x"); len(ids) != 0 {
		t.Errorf("tag index must drop deleted sessions, got %v", ids)
	}
	if ids := store.SearchMetadata(map[string]any{"env": "prod"}); len(ids) != 0 {
		t.Errorf("metadata index must drop deleted sessions, got %v", ids)
	}
}
