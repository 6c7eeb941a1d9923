// Package archive writes session snapshots to a SQLite file and reads them
// back. Archiving is an explicit, operator-triggered export like JSON or CSV;
// the live store stays memory-only.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/anthropics/relay/internal/session"
)

// Archive is a handle on a SQLite archive file.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) an archive file and initializes the schema.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return a, nil
}

// Close closes the archive file.
func (a *Archive) Close() error {
	return a.db.Close()
}

// migrate applies the archive schema.
func (a *Archive) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			messages TEXT NOT NULL,
			tags TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Save writes session snapshots into the archive, replacing rows with the
// same id. Returns the number of sessions written.
func (a *Archive) Save(sessions []*session.Session) (int, error) {
	tx, err := a.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO sessions (id, messages, tags, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range sessions {
		msgs, err := json.Marshal(s.Messages)
		if err != nil {
			return 0, fmt.Errorf("marshal messages for %s: %w", s.ID, err)
		}
		tags, err := json.Marshal(s.Tags)
		if err != nil {
			return 0, fmt.Errorf("marshal tags for %s: %w", s.ID, err)
		}
		meta, err := json.Marshal(s.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata for %s: %w", s.ID, err)
		}
		if _, err := stmt.Exec(s.ID, string(msgs), string(tags), string(meta),
			s.CreatedAt.UnixNano(), s.UpdatedAt.UnixNano()); err != nil {
			return 0, fmt.Errorf("insert %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(sessions), nil
}

// Load reads every archived session, ordered by id.
func (a *Archive) Load() ([]*session.Session, error) {
	rows, err := a.db.Query(
		`SELECT id, messages, tags, metadata, created_at, updated_at FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var (
			s                    session.Session
			msgs, tags, meta     string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&s.ID, &msgs, &tags, &meta, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal([]byte(msgs), &s.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages for %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(meta), &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", s.ID, err)
		}
		s.CreatedAt = time.Unix(0, createdAt)
		s.UpdatedAt = time.Unix(0, updatedAt)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Replace overwrites the archive contents with exactly the given sessions,
// dropping rows for sessions that no longer exist.
func (a *Archive) Replace(sessions []*session.Session) (int, error) {
	if _, err := a.db.Exec(`DELETE FROM sessions`); err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	return a.Save(sessions)
}

// SaveStore snapshots every session in the store into the archive.
func (a *Archive) SaveStore(store *session.Store) (int, error) {
	return a.Save(store.Snapshot())
}

// ReplaceStore overwrites the archive with the store's current sessions.
func (a *Archive) ReplaceStore(store *session.Store) (int, error) {
	return a.Replace(store.Snapshot())
}

// RestoreStore loads every archived session into the store, replacing
// sessions with the same id. Returns the number restored.
func (a *Archive) RestoreStore(store *session.Store) (int, error) {
	sessions, err := a.Load()
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		if err := store.Restore(s); err != nil {
			return 0, fmt.Errorf("restore %s: %w", s.ID, err)
		}
	}
	return len(sessions), nil
}
