// Package store defines storage interfaces for user settings, alert
// requests, and the news archive, with SQLite and Parquet implementations.
package store

import (
	"context"
	"errors"
	"time"

	"tickermark/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SettingsStore persists the user toggles.
type SettingsStore interface {
	// GetSettings returns the stored settings, with defaults for unset keys.
	GetSettings(ctx context.Context) (domain.Settings, error)

	// SaveSettings replaces the stored settings.
	SaveSettings(ctx context.Context, s domain.Settings) error
}

// AlertStore persists alert creation requests.
type AlertStore interface {
	// SaveAlertRequest inserts a new request.
	SaveAlertRequest(ctx context.Context, req *domain.AlertRequest) error

	// GetAlertRequest retrieves a single request by its ID.
	GetAlertRequest(ctx context.Context, id string) (*domain.AlertRequest, error)

	// ListAlertRequests returns requests with the given status, oldest
	// first. An empty status lists every request.
	ListAlertRequests(ctx context.Context, status domain.AlertRequestStatus) ([]domain.AlertRequest, error)

	// UpdateAlertRequestStatus changes the status of an existing request.
	UpdateAlertRequestStatus(ctx context.Context, id string, status domain.AlertRequestStatus) error
}

// NewsStore persists news articles by publication day.
type NewsStore interface {
	// WriteNews merges articles into the archive.
	WriteNews(ctx context.Context, articles []domain.Article) error

	// ReadNews returns the archived articles for the day containing date.
	ReadNews(ctx context.Context, date time.Time) ([]domain.Article, error)

	// ListNewsDates returns every archived day as YYYY-MM-DD.
	ListNewsDates(ctx context.Context) ([]string, error)
}
