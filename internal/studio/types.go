package studio

import (
	"strings"
	"time"
)

// Role is a user's privilege level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts "user" or "admin" in any case.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Status is the server-side state of a video job.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCanceled   Status = "CANCELED"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// User is an account as returned by the API. Quota fields are in seconds.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	MonthlyLimit *int   `json:"monthly_limit"`
	MonthlyUsage *int   `json:"monthly_usage"`
	IsActive     bool   `json:"is_active"`
}

// IsAdmin reports whether the user may manage users and avatars.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Avatar is a named voice and visual persona.
type Avatar struct {
	AvatarID string `json:"avatar_id"`
	Name     string `json:"name"`
	VoiceID  string `json:"voice_id"`
}

// VideoDetail is one snapshot of a video job.
type VideoDetail struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          Status   `json:"status"`
	S3URL           *string  `json:"s3_url"`
	DurationSeconds *float64 `json:"duration_seconds"`
	CompletedAt     *string  `json:"completed_at"`
	ErrorMessage    *string  `json:"error_message"`
	AvatarID        *string  `json:"avatar_id"`
	Text            *string  `json:"text"`
}

// URL returns the result URL or "".
func (v VideoDetail) URL() string {
	return deref(v.S3URL)
}

// Error returns the failure message or "".
func (v VideoDetail) Error() string {
	return deref(v.ErrorMessage)
}

var completedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// CompletedTime parses completed_at. Timestamps without a zone are UTC.
func (v VideoDetail) CompletedTime() (time.Time, bool) {
	raw := strings.TrimSpace(deref(v.CompletedAt))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range completedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
}

// NewUser is the input of CreateUser. MonthlyLimitMinutes is in minutes;
// nil or zero means no limit.
type NewUser struct {
	Email               string
	Password            string
	Role                Role
	MonthlyLimitMinutes *int
}

// UserUpdate is the input of UpdateUser. Nil fields are sent as null and
// left unchanged by the server.
type UserUpdate struct {
	ID                  string
	Email               *string
	Password            *string
	Role                *Role
	MonthlyLimitMinutes *int
	IsActive            *bool
}

// AvatarUpdate is the input of UpdateAvatar. Nil fields are omitted.
type AvatarUpdate struct {
	AvatarID string  `json:"avatar_id"`
	Name     *string `json:"name,omitempty"`
	VoiceID  *string `json:"voice_id,omitempty"`
}

// NewVideo is the input of CreateVideo.
type NewVideo struct {
	Title    string `json:"title"`
	AvatarID string `json:"avatar_id"`
	Text     string `json:"text"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
