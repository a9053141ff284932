package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"avatarctl/internal/studio"
)

// Entry is the journaled state of one video job.
type Entry struct {
	ID              string
	Title           string
	Status          studio.Status
	AvatarID        string
	URL             string
	ErrorMessage    string
	DurationSeconds *float64
	CompletedAt     string
	DownloadPath    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Video converts the entry back into an API snapshot, used to resume
// polling from the last known state.
func (e Entry) Video() studio.VideoDetail {
	v := studio.VideoDetail{
		ID:              e.ID,
		Title:           e.Title,
		Status:          e.Status,
		DurationSeconds: e.DurationSeconds,
	}
	v.S3URL = optional(e.URL)
	v.ErrorMessage = optional(e.ErrorMessage)
	v.AvatarID = optional(e.AvatarID)
	v.CompletedAt = optional(e.CompletedAt)
	return v
}

const entryColumns = "id, title, status, avatar_id, s3_url, error_message, duration_seconds, completed_at, download_path, created_at, updated_at"

// Record upserts a snapshot. Empty optional fields never erase values
// recorded earlier, so a sparse poll response keeps the known avatar.
func (s *Store) Record(ctx context.Context, video studio.VideoDetail) error {
	id := strings.TrimSpace(video.ID)
	if id == "" {
		return errors.New("journal: video id is required")
	}
	now := formatTime(time.Now())
	status := video.Status
	if status == "" {
		status = studio.StatusInProgress
	}
	var duration any
	if video.DurationSeconds != nil {
		duration = *video.DurationSeconds
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO video_jobs (id, title, status, avatar_id, s3_url, error_message, duration_seconds, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = CASE WHEN excluded.title <> '' THEN excluded.title ELSE video_jobs.title END,
		   status = excluded.status,
		   avatar_id = COALESCE(excluded.avatar_id, video_jobs.avatar_id),
		   s3_url = COALESCE(excluded.s3_url, video_jobs.s3_url),
		   error_message = excluded.error_message,
		   duration_seconds = COALESCE(excluded.duration_seconds, video_jobs.duration_seconds),
		   completed_at = COALESCE(excluded.completed_at, video_jobs.completed_at),
		   updated_at = excluded.updated_at`,
		id,
		strings.TrimSpace(video.Title),
		string(status),
		nullableString(video.AvatarID),
		nullableString(video.S3URL),
		nullableString(video.ErrorMessage),
		duration,
		nullableString(video.CompletedAt),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("record video %s: %w", id, err)
	}
	return nil
}

// MarkDownloaded stores where the result file was saved.
func (s *Store) MarkDownloaded(ctx context.Context, id, path string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE video_jobs SET download_path = ?, updated_at = ? WHERE id = ?`,
		path, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark downloaded %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ErrNotFound is returned when no entry exists for an id.
var ErrNotFound = errors.New("journal entry not found")

// Get returns one entry.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+entryColumns+" FROM video_jobs WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return entry, nil
}

// List returns entries, most recently updated first. Statuses filter the
// result when given; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int, statuses ...studio.Status) ([]*Entry, error) {
	query := "SELECT " + entryColumns + " FROM video_jobs"
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY updated_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Pending returns jobs last seen in progress, oldest first.
func (s *Store) Pending(ctx context.Context) ([]*Entry, error) {
	entries, err := s.List(ctx, 0, studio.StatusInProgress)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Remove deletes an entry. Removing an unknown id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM video_jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("remove journal entry %s: %w", id, err)
	}
	return nil
}

// Prune deletes terminal entries last updated before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM video_jobs WHERE status IN (?, ?, ?) AND updated_at < ?`,
		string(studio.StatusCompleted), string(studio.StatusFailed), string(studio.StatusCanceled),
		formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}
