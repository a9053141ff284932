package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore keeps slots in the session_slots table of the local state
// database. The schema is owned by the journal migrations.
type SQLiteStore struct {
	db     *sql.DB
	expiry time.Duration
	now    func() time.Time
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB, expiry time.Duration) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("session: database is nil")
	}
	return &SQLiteStore{db: db, expiry: expiry, now: time.Now}, nil
}

func (s *SQLiteStore) Get(slots ...string) (map[string]string, error) {
	if err := validateSlots(slots); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(slots))
	if len(slots) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slots)), ",")
	args := make([]any, len(slots))
	for i, slot := range slots {
		args[i] = slot
	}
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT slot, value, expires_at FROM session_slots WHERE slot IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query session slots: %w", err)
	}
	defer rows.Close()

	now := s.now()
	for rows.Next() {
		var (
			slot, value string
			expiresAt   sql.NullInt64
		)
		if err := rows.Scan(&slot, &value, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan session slot: %w", err)
		}
		e := entry{Value: value}
		if expiresAt.Valid {
			e.ExpiresAt = time.Unix(expiresAt.Int64, 0)
		}
		if e.live(now) {
			out[slot] = value
		}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Set(values map[string]string) error {
	slots := make([]string, 0, len(values))
	for slot := range values {
		slots = append(slots, slot)
	}
	if err := validateSlots(slots); err != nil {
		return err
	}
	now := s.now()
	var expires sql.NullInt64
	if exp := expiryFor(now, s.expiry); !exp.IsZero() {
		expires = sql.NullInt64{Int64: exp.Unix(), Valid: true}
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for slot, value := range values {
		if _, err := tx.Exec(
			`INSERT INTO session_slots (slot, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(slot) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
			slot, value, expires, now.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("write session slot %s: %w", slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	for _, slot := range slots {
		if _, err := tx.Exec(`DELETE FROM session_slots WHERE slot = ?`, slot); err != nil {
			return fmt.Errorf("clear session slot %s: %w", slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}
