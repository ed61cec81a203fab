// Package predictor provides pluggable interfaces for the trained models.
//
// Both predictors are opaque: the orchestration layer depends only on the
// single capability "predict", so any concrete model format can be swapped
// in without touching the session controllers. Implementations must be safe
// for concurrent read-only invocation by multiple sessions.
package predictor

import (
	"context"
	"fmt"

	"github.com/epiwatch/sentinel/internal/config"
)

// ImageClassifier estimates the probability of a parasite-positive finding
// from a normalized image tensor.
type ImageClassifier interface {
	// Predict consumes InputSize()×InputSize()×3 RGB values scaled to [0,1]
	// and returns the positive-class probability in [0,1].
	Predict(ctx context.Context, pixels []float32) (float64, error)

	// InputSize returns the fixed spatial size the model expects.
	InputSize() int

	// Name returns the backend name.
	Name() string
}

// CaseRegressor estimates a raw case count from an encoded feature vector.
type CaseRegressor interface {
	// Predict consumes NumFeatures() values in the encoder's fixed order and
	// returns the unadjusted base prediction.
	Predict(ctx context.Context, features []float64) (float64, error)

	// NumFeatures returns the feature count the model was trained on.
	NumFeatures() int

	// Name returns the backend name.
	Name() string
}

// InferenceError wraps a predictor failure, including timeouts. The
// underlying cause is always attached, never swallowed.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed (%s): %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// NewClassifier creates an image classifier based on configuration.
func NewClassifier(cfg *config.PredictorConfig) (ImageClassifier, error) {
	switch cfg.Provider {
	case "modelserver":
		return NewModelServerClassifier(cfg)
	case "baseline":
		return NewBaselineClassifier(), nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}
}

// NewRegressor creates a case regressor based on configuration.
func NewRegressor(cfg *config.PredictorConfig) (CaseRegressor, error) {
	switch cfg.Provider {
	case "modelserver":
		return NewModelServerRegressor(cfg)
	case "baseline":
		return NewBaselineRegressor(), nil
	default:
		return nil, fmt.Errorf("unsupported regressor provider: %s", cfg.Provider)
	}
}
