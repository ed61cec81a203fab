// Package database provides the data access layer for the history store.
//
// The store holds append-only telemetry (completed analyses, forecasts and
// request audit rows) that feeds the dashboard. Session state never touches
// it and is lost on process restart.
package database

import (
	"context"

	"github.com/epiwatch/sentinel/internal/models"
)

// Store defines the interface for history persistence.
type Store interface {
	// Detection history
	SaveDetection(ctx context.Context, record *models.DetectionRecord) error
	ListDetections(ctx context.Context, limit, offset int) ([]*models.DetectionRecord, error)

	// Forecast history
	SaveForecast(ctx context.Context, record *models.ForecastRecord) error
	ListForecasts(ctx context.Context, limit, offset int) ([]*models.ForecastRecord, error)

	// Dashboard aggregates
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)

	// Audit logs
	LogRequest(ctx context.Context, log *models.AuditLog) error
	GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// Lifecycle
	Close() error
	Migrate() error
}
