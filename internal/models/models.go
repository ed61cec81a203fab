// Package models defines the core data structures used throughout the application.
package models

import (
	"time"
)

// DetectionStatus represents the lifecycle state of a detection session.
type DetectionStatus string

const (
	DetectionEmpty     DetectionStatus = "empty"
	DetectionReady     DetectionStatus = "ready"
	DetectionAnalyzing DetectionStatus = "analyzing"
	DetectionComplete  DetectionStatus = "complete"
)

// ForecastStatus represents the lifecycle state of a forecast session.
type ForecastStatus string

const (
	ForecastIdle     ForecastStatus = "idle"
	ForecastComplete ForecastStatus = "complete"
)

// PopulationTier is the coarse population bucket of the forecast location.
type PopulationTier string

const (
	PopulationSmall  PopulationTier = "small"
	PopulationMedium PopulationTier = "medium"
	PopulationLarge  PopulationTier = "large"
)

// RiskLevel is the coarse bucketing of an adjusted predicted case count.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// DetectionSession tracks one image-analysis workflow. RawScore, Confidence
// and Positive are non-nil exactly when Status is DetectionComplete, and
// InputFingerprint identifies the input that produced them.
type DetectionSession struct {
	Status           DetectionStatus `json:"status"`
	InputFingerprint string          `json:"input_fingerprint,omitempty"`
	RawScore         *float64        `json:"raw_score,omitempty"`
	Confidence       *float64        `json:"confidence,omitempty"`
	Positive         *bool           `json:"positive,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// ForecastRequest carries the climate and demographic parameters for one
// forecast computation.
type ForecastRequest struct {
	Country         string         `json:"country"`
	City            string         `json:"city"`
	Month           string         `json:"month"`
	Temperature     float64        `json:"temperature_c"`
	RainfallMm      float64        `json:"rainfall_mm"`
	HumidityPct     float64        `json:"humidity_pct"`
	PreviousCases   int            `json:"previous_cases"`
	PopulationTier  PopulationTier `json:"population_tier"`
	HealthcareIndex int            `json:"healthcare_index"`
}

// ForecastSession tracks one epidemiological forecast workflow. Fields other
// than Status are non-nil exactly when Status is ForecastComplete. A new
// forecast always re-derives the full record.
type ForecastSession struct {
	Status             ForecastStatus   `json:"status"`
	Request            *ForecastRequest `json:"request,omitempty"`
	PredictedCases     *int             `json:"predicted_cases,omitempty"`
	RiskLevel          RiskLevel        `json:"risk_level,omitempty"`
	ModelConfidencePct *int             `json:"model_confidence_pct,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

// DetectionRecord is the append-only history row persisted when an analysis
// completes. It feeds the dashboard and is not session state.
type DetectionRecord struct {
	ID               string    `json:"id"`
	Fingerprint      string    `json:"fingerprint"`
	RawScore         float64   `json:"raw_score"`
	Confidence       float64   `json:"confidence"`
	Positive         bool      `json:"positive"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ForecastRecord is the append-only history row persisted when a forecast
// completes.
type ForecastRecord struct {
	ID                 string    `json:"id"`
	Country            string    `json:"country"`
	City               string    `json:"city"`
	Month              string    `json:"month"`
	PredictedCases     int       `json:"predicted_cases"`
	RiskLevel          RiskLevel `json:"risk_level"`
	ModelConfidencePct int       `json:"model_confidence_pct"`
	CreatedAt          time.Time `json:"created_at"`
}

// DashboardStats aggregates the history store for the analytics view.
type DashboardStats struct {
	ImagesAnalyzed     int            `json:"images_analyzed"`
	PositiveDetections int            `json:"positive_detections"`
	AvgConfidence      float64        `json:"avg_confidence"`
	ForecastsGenerated int            `json:"forecasts_generated"`
	HighRiskForecasts  int            `json:"high_risk_forecasts"`
	ForecastsByCountry map[string]int `json:"forecasts_by_country"`
}

// AuditLog represents an API request audit entry.
type AuditLog struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	RequestSize  int64     `json:"request_size"`
	ResponseCode int       `json:"response_code"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}
