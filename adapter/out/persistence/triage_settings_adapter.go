package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"assistant_server/core/domain"
	"assistant_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SettingsAdapter implements out.SettingsRepository using PostgreSQL.
type SettingsAdapter struct {
	db *sqlx.DB
}

func NewSettingsAdapter(db *sqlx.DB) *SettingsAdapter {
	return &SettingsAdapter{db: db}
}

type settingsRow struct {
	UserID          uuid.UUID      `db:"user_id"`
	Email           string         `db:"email"`
	DefaultTimezone sql.NullString `db:"default_timezone"`
	AccessToken     sql.NullString `db:"access_token"`
	RefreshToken    sql.NullString `db:"refresh_token"`
	TokenExpiry     sql.NullTime   `db:"token_expiry"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

const settingsQuery = `
	SELECT user_id, email, default_timezone, access_token, refresh_token, token_expiry, updated_at
	FROM user_settings
	WHERE user_id = $1`

func (a *SettingsAdapter) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	var row settingsRow
	err := a.db.GetContext(ctx, &row, settingsQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user settings")
	}
	if err != nil {
		return nil, apperr.DatabaseError("fetch user settings", err)
	}

	settings := &domain.UserSettings{
		UserID:          row.UserID,
		Email:           row.Email,
		DefaultTimezone: row.DefaultTimezone.String,
		AccessToken:     row.AccessToken.String,
		RefreshToken:    row.RefreshToken.String,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.TokenExpiry.Valid {
		settings.TokenExpiry = row.TokenExpiry.Time
	}
	return settings, nil
}
