package predictor

import (
	"context"
	"fmt"
)

// BaselineClassifier is a deterministic stand-in for the trained detection
// model. Parasitized smears stain darker than healthy cells, so it scores on
// mean pixel intensity. It is a heuristic, not a diagnostic model.
type BaselineClassifier struct{}

// NewBaselineClassifier creates the embedded classifier.
func NewBaselineClassifier() *BaselineClassifier {
	return &BaselineClassifier{}
}

// Name returns the backend name.
func (c *BaselineClassifier) Name() string {
	return "baseline"
}

// InputSize returns the fixed spatial size the model expects.
func (c *BaselineClassifier) InputSize() int {
	return defaultClassifierInput
}

// Predict scores the tensor by inverted mean intensity.
func (c *BaselineClassifier) Predict(ctx context.Context, pixels []float32) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	want := c.InputSize() * c.InputSize() * 3
	if len(pixels) != want {
		return 0, fmt.Errorf("expected %d tensor values, got %d", want, len(pixels))
	}

	var sum float64
	for _, v := range pixels {
		sum += float64(v)
	}
	mean := sum / float64(len(pixels))

	// Inputs are normalized to [0,1], so the score is too.
	return 1 - mean, nil
}

// BaselineRegressor is a deterministic stand-in for the trained forecast
// model: a linear blend of the climate and case-history features.
type BaselineRegressor struct{}

// NewBaselineRegressor creates the embedded regressor.
func NewBaselineRegressor() *BaselineRegressor {
	return &BaselineRegressor{}
}

// Name returns the backend name.
func (r *BaselineRegressor) Name() string {
	return "baseline"
}

// NumFeatures returns the feature count the model was trained on.
func (r *BaselineRegressor) NumFeatures() int {
	return regressorFeatureCount
}

// Predict applies fixed linear weights to the encoded feature vector.
// Feature order: country, city, month, temperature, humidity, rainfall,
// previous cases.
func (r *BaselineRegressor) Predict(ctx context.Context, features []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != r.NumFeatures() {
		return 0, fmt.Errorf("expected %d features, got %d", r.NumFeatures(), len(features))
	}

	weights := [regressorFeatureCount]float64{0.5, 0.1, 0.8, 0.4, 0.12, 0.05, 0.6}

	var out float64
	for i, w := range weights {
		out += w * features[i]
	}
	if out < 0 {
		out = 0
	}
	return out, nil
}
