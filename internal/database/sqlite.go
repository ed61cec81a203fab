// Package database provides SQLite implementation of the Store interface.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/epiwatch/sentinel/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS detections (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			raw_score REAL NOT NULL,
			confidence REAL NOT NULL,
			positive INTEGER NOT NULL,
			processing_time_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_fingerprint ON detections(fingerprint)`,
		`CREATE TABLE IF NOT EXISTS forecasts (
			id TEXT PRIMARY KEY,
			country TEXT NOT NULL,
			city TEXT NOT NULL,
			month TEXT NOT NULL,
			predicted_cases INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			model_confidence_pct INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_country ON forecasts(country)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			request_size INTEGER NOT NULL,
			response_code INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveDetection stores a completed analysis.
func (s *SQLiteStore) SaveDetection(ctx context.Context, r *models.DetectionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detections (id, fingerprint, raw_score, confidence, positive, processing_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Fingerprint, r.RawScore, r.Confidence, r.Positive, r.ProcessingTimeMs, r.CreatedAt,
	)
	return err
}

// ListDetections returns paginated detection history.
func (s *SQLiteStore) ListDetections(ctx context.Context, limit, offset int) ([]*models.DetectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, raw_score, confidence, positive, processing_time_ms, created_at
		FROM detections ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.DetectionRecord
	for rows.Next() {
		var r models.DetectionRecord
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.RawScore, &r.Confidence,
			&r.Positive, &r.ProcessingTimeMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// SaveForecast stores a completed forecast.
func (s *SQLiteStore) SaveForecast(ctx context.Context, r *models.ForecastRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecasts (id, country, city, month, predicted_cases, risk_level, model_confidence_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Country, r.City, r.Month, r.PredictedCases, r.RiskLevel, r.ModelConfidencePct, r.CreatedAt,
	)
	return err
}

// ListForecasts returns paginated forecast history.
func (s *SQLiteStore) ListForecasts(ctx context.Context, limit, offset int) ([]*models.ForecastRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, country, city, month, predicted_cases, risk_level, model_confidence_pct, created_at
		FROM forecasts ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ForecastRecord
	for rows.Next() {
		var r models.ForecastRecord
		if err := rows.Scan(&r.ID, &r.Country, &r.City, &r.Month,
			&r.PredictedCases, &r.RiskLevel, &r.ModelConfidencePct, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// DashboardStats aggregates the history tables for the analytics view.
func (s *SQLiteStore) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		ForecastsByCountry: make(map[string]int),
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN positive THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(confidence), 0)
		FROM detections`)
	if err := row.Scan(&stats.ImagesAnalyzed, &stats.PositiveDetections, &stats.AvgConfidence); err != nil {
		return nil, err
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN risk_level = 'high' THEN 1 ELSE 0 END), 0)
		FROM forecasts`)
	if err := row.Scan(&stats.ForecastsGenerated, &stats.HighRiskForecasts); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT country, COUNT(*) FROM forecasts GROUP BY country`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var country string
		var count int
		if err := rows.Scan(&country, &count); err != nil {
			return nil, err
		}
		stats.ForecastsByCountry[country] = count
	}
	return stats, rows.Err()
}

// LogRequest stores an audit log entry.
func (s *SQLiteStore) LogRequest(ctx context.Context, log *models.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, session_id, endpoint, method, request_size, response_code, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.SessionID, log.Endpoint, log.Method, log.RequestSize,
		log.ResponseCode, log.DurationMs, log.Timestamp)
	return err
}

// GetAuditLogs returns paginated audit logs.
func (s *SQLiteStore) GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, endpoint, method, request_size, response_code, duration_ms, timestamp
		FROM audit_logs ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Endpoint, &l.Method,
			&l.RequestSize, &l.ResponseCode, &l.DurationMs, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
