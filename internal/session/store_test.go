package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testClock returns a deterministic clock advancing one second per read.
func testClock() func() time.Time {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(time.Second)
		return t
	}
}

func newTestStore(maxHistory int) *Store {
	return NewStore(maxHistory, WithClock(testClock()))
}

func TestAppendCreatesSession(t *testing.T) {
	store := newTestStore(0)

	msg, err := store.Append("s1", RoleUser, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Role != RoleUser || msg.Content != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be assigned")
	}

	sess, err := store.Get("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.MessageCount() != 1 {
		t.Errorf("expected 1 message, got %d", sess.MessageCount())
	}
}

func TestAppendValidation(t *testing.T) {
	store := newTestStore(0)

	if _, err := store.Append("s1", Role("robot"), "hi"); !IsValidation(err) {
		t.Errorf("expected validation error for bad role, got %v", err)
	}
	if _, err := store.Append("s1", RoleUser, ""); !IsValidation(err) {
		t.Errorf("expected validation error for empty content, got %v", err)
	}
	// System messages may carry empty content.
	if _, err := store.Append("s1", RoleSystem, ""); err != nil {
		t.Errorf("unexpected error for empty system content: %v", err)
	}
}

func TestGetNeverCreates(t *testing.T) {
	store := newTestStore(0)

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Get must not create sessions, count = %d", store.Count())
	}
}

func TestCreateExplicit(t *testing.T) {
	store := newTestStore(0)

	sess := store.Create("s1")
	if sess.ID != "s1" {
		t.Errorf("expected id s1, got %s", sess.ID)
	}
	if sess.MessageCount() != 0 {
		t.Errorf("expected empty session, got %d messages", sess.MessageCount())
	}

	// Creating again returns the existing session.
	store.AddTags("s1", "x")
	again := store.Create("s1")
	if !again.HasTag("x") {
		t.Error("Create must not reset an existing session")
	}

	// Empty id generates one.
	gen := store.Create("")
	if gen.ID == "" {
		t.Error("expected generated id")
	}
}

func TestBoundedHistory(t *testing.T) {
	store := newTestStore(20)

	for i := 0; i < 25; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if _, err := store.Append("s1", role, fmt.Sprintf("msg-%d", i+1)); err != nil {
			t.Fatalf("append %d: %v", i+1, err)
		}
	}

	sess, err := store.Get("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.MessageCount() != 20 {
		t.Fatalf("expected 20 messages after eviction, got %d", sess.MessageCount())
	}
	// The retained messages are exactly the most recent 20, in order.
	for i, msg := range sess.Messages {
		want := fmt.Sprintf("msg-%d", i+6)
		if msg.Content != want {
			t.Errorf("message %d: expected %q, got %q", i, want, msg.Content)
		}
	}
}

func TestTimestampsStrictlyIncreasing(t *testing.T) {
	// A frozen clock forces the logical nudge path.
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(0, WithClock(func() time.Time { return frozen }))

	for i := 0; i < 5; i++ {
		if _, err := store.Append("s1", RoleUser, "tick"); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	sess, _ := store.Get("s1")
	for i := 1; i < len(sess.Messages); i++ {
		prev, cur := sess.Messages[i-1].Timestamp, sess.Messages[i].Timestamp
		if !cur.After(prev) {
			t.Errorf("message %d timestamp %v not after %v", i, cur, prev)
		}
	}
}

func TestHistoryLimit(t *testing.T) {
	store := newTestStore(0)
	for i := 0; i < 5; i++ {
		store.Append("s1", RoleUser, fmt.Sprintf("msg-%d", i+1))
	}

	recent, err := store.History("s1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "msg-4" || recent[1].Content != "msg-5" {
		t.Errorf("expected last 2 messages, got %+v", recent)
	}

	all, _ := store.History("s1", 0)
	if len(all) != 5 {
		t.Errorf("expected all 5 messages, got %d", len(all))
	}

	over, _ := store.History("s1", 100)
	if len(over) != 5 {
		t.Errorf("expected all 5 messages for oversized limit, got %d", len(over))
	}

	if _, err := store.History("missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClearHistoryKeepsShell(t *testing.T) {
	store := newTestStore(0)
	store.Append("s1", RoleUser, "hello")
	store.AddTags("s1", "Keep-Me")
	store.SetMetadata("s1", map[string]any{"env": "prod"})

	if err := store.ClearHistory("s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, err := store.Get("s1")
	if err != nil {
		t.Fatalf("session shell must survive a clear: %v", err)
	}
	if sess.MessageCount() != 0 {
		t.Errorf("expected 0 messages, got %d", sess.MessageCount())
	}
	if !sess.HasTag("keep-me") {
		t.Error("tags must survive a clear")
	}
	if sess.Metadata["env"] != "prod" {
		t.Error("metadata must survive a clear")
	}

	if err := store.ClearHistory("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(0)
	store.Append("s1", RoleUser, "hello")

	if err := store.Delete("s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get("s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestBulkDeletePartialSuccess(t *testing.T) {
	store := newTestStore(0)
	store.Append("a", RoleUser, "hi")
	store.Append("c", RoleUser, "hi")

	res := store.BulkDelete([]string{"a", "b", "c"})
	if len(res.Deleted) != 2 || res.Deleted[0] != "a" || res.Deleted[1] != "c" {
		t.Errorf("expected deleted [a c], got %v", res.Deleted)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "b" {
		t.Errorf("expected missing [b], got %v", res.Missing)
	}
	if _, err := store.Get("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected b to still be NotFound, got %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d sessions", store.Count())
	}
}

func TestImportAppendAndOverwrite(t *testing.T) {
	store := newTestStore(0)
	store.Append("s1", RoleUser, "existing")

	batch := []Message{
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
	}
	n, err := store.Import("s1", batch, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 committed, got %d", n)
	}
	sess, _ := store.Get("s1")
	if sess.MessageCount() != 3 {
		t.Errorf("append import: expected 3 messages, got %d", sess.MessageCount())
	}

	if _, err := store.Import("s1", batch, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, _ = store.Get("s1")
	if sess.MessageCount() != 2 {
		t.Errorf("overwrite import: expected 2 messages, got %d", sess.MessageCount())
	}
	if sess.Messages[0].Content != "one" {
		t.Errorf("expected first imported message, got %q", sess.Messages[0].Content)
	}
}

func TestImportAllOrNothing(t *testing.T) {
	store := newTestStore(0)
	store.Append("s1", RoleUser, "existing")

	batch := []Message{
		{Role: RoleUser, Content: "ok"},
		{Role: RoleUser, Content: ""}, // invalid
	}
	_, err := store.Import("s1", batch, false)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Index != 1 {
		t.Errorf("expected offending index 1, got %d", ve.Index)
	}

	sess, _ := store.Get("s1")
	if sess.MessageCount() != 1 {
		t.Errorf("failed import must not change the session, got %d messages", sess.MessageCount())
	}
}

func TestImportPreservesTimestamps(t *testing.T) {
	store := newTestStore(0)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := []Message{
		{Role: RoleUser, Content: "one", Timestamp: base},
		{Role: RoleAssistant, Content: "two", Timestamp: base.Add(time.Minute)},
	}
	if _, err := store.Import("s1", batch, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, _ := store.Get("s1")
	if !sess.Messages[0].Timestamp.Equal(base) {
		t.Errorf("expected timestamp %v preserved, got %v", base, sess.Messages[0].Timestamp)
	}
	if !sess.Messages[1].Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("expected second timestamp preserved, got %v", sess.Messages[1].Timestamp)
	}
}

func TestImportRespectsCap(t *testing.T) {
	store := newTestStore(3)

	batch := make([]Message, 5)
	for i := range batch {
		batch[i] = Message{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i+1)}
	}
	if _, err := store.Import("s1", batch, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, _ := store.Get("s1")
	if sess.MessageCount() != 3 {
		t.Fatalf("expected cap of 3, got %d", sess.MessageCount())
	}
	if sess.Messages[0].Content != "msg-3" {
		t.Errorf("expected newest suffix retained, got %q first", sess.Messages[0].Content)
	}
}

func TestCloneIsolation(t *testing.T) {
	store := newTestStore(0)
	store.Append("s1", RoleUser, "hello")

	sess, _ := store.Get("s1")
	sess.Messages[0].Content = "mutated"
	sess.Metadata["x"] = 1

	again, _ := store.Get("s1")
	if again.Messages[0].Content != "hello" {
		t.Error("store state leaked through a returned clone")
	}
	if _, ok := again.Metadata["x"]; ok {
		t.Error("metadata leaked through a returned clone")
	}
}

func TestLastMessage(t *testing.T) {
	store := newTestStore(0)

	store.Create("empty")
	sess, _ := store.Get("empty")
	if sess.LastMessage() != nil {
		t.Error("expected nil last message for an empty session")
	}

	store.Append("s1", RoleUser, "first")
	store.Append("s1", RoleAssistant, "second")
	sess, _ = store.Get("s1")
	last := sess.LastMessage()
	if last == nil || last.Role != RoleAssistant || last.Content != "second" {
		t.Errorf("unexpected last message: %+v", last)
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	store := NewStore(1000)
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := store.Append("shared", RoleUser, "hi"); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	sess, err := store.Get("shared")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.MessageCount() != workers*perWorker {
		t.Errorf("expected %d messages, got %d", workers*perWorker, sess.MessageCount())
	}
	for i := 1; i < len(sess.Messages); i++ {
		if !sess.Messages[i].Timestamp.After(sess.Messages[i-1].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
}

func TestConcurrentAppendsRespectCap(t *testing.T) {
	store := NewStore(10)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				store.Append("shared", RoleUser, "hi")
			}
		}()
	}
	wg.Wait()

	sess, _ := store.Get("shared")
	if sess.MessageCount() != 10 {
		t.Errorf("expected cap of 10 to hold, got %d", sess.MessageCount())
	}
}

func TestConcurrentMixedOperations(t *testing.T) {
	store := NewStore(20)
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", w)
			for i := 0; i < 30; i++ {
				store.Append(id, RoleUser, "hi")
				store.AddTags(id, "busy")
				store.List(Filter{MinMessages: 1})
				store.Stats()
				store.FindByTag("busy")
			}
		}(w)
	}
	wg.Wait()

	stats := store.Stats()
	if stats.TotalSessions != 4 {
		t.Errorf("expected 4 sessions, got %d", stats.TotalSessions)
	}
}
