package journal

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"avatarctl/internal/studio"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id           string
		title        sql.NullString
		status       string
		avatarID     sql.NullString
		url          sql.NullString
		errorMessage sql.NullString
		duration     sql.NullFloat64
		completedAt  sql.NullString
		downloadPath sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&title,
		&status,
		&avatarID,
		&url,
		&errorMessage,
		&duration,
		&completedAt,
		&downloadPath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           id,
		Title:        title.String,
		Status:       studio.Status(status),
		AvatarID:     avatarID.String,
		URL:          url.String,
		ErrorMessage: errorMessage.String,
		CompletedAt:  completedAt.String,
		DownloadPath: downloadPath.String,
	}
	if duration.Valid {
		d := duration.Float64
		entry.DurationSeconds = &d
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func nullableString(value *string) any {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return *value
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
