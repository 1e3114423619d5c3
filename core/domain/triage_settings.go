package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserSettings holds per-user preferences the triage pipeline reads.
// DefaultTimezone is an IANA zone name; time mentions without an explicit
// zone resolve against it.
type UserSettings struct {
	UserID          uuid.UUID `json:"user_id"`
	Email           string    `json:"email"`
	DefaultTimezone string    `json:"default_timezone"`

	// OAuth token for the mail/calendar provider. Held per user and handed
	// to per-request service construction, never to shared clients.
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Location resolves the default timezone, falling back to UTC when the stored
// name is missing or invalid.
func (s *UserSettings) Location() *time.Location {
	if s == nil || s.DefaultTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasProviderToken reports whether a usable provider credential is stored.
func (s *UserSettings) HasProviderToken() bool {
	return s != nil && (s.AccessToken != "" || s.RefreshToken != "")
}
