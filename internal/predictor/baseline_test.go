package predictor

import (
	"context"
	"testing"

	"github.com/epiwatch/sentinel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var badProviderCfg = config.PredictorConfig{Provider: "onnx"}

func TestBaselineClassifierScoreRange(t *testing.T) {
	c := NewBaselineClassifier()
	n := c.InputSize() * c.InputSize() * 3

	for _, fill := range []float32{0, 0.25, 0.5, 1} {
		pixels := make([]float32, n)
		for i := range pixels {
			pixels[i] = fill
		}
		score, err := c.Predict(context.Background(), pixels)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestBaselineClassifierDeterministic(t *testing.T) {
	c := NewBaselineClassifier()
	pixels := make([]float32, c.InputSize()*c.InputSize()*3)
	for i := range pixels {
		pixels[i] = float32(i%7) / 7
	}

	a, err := c.Predict(context.Background(), pixels)
	require.NoError(t, err)
	b, err := c.Predict(context.Background(), pixels)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBaselineClassifierRejectsBadShape(t *testing.T) {
	c := NewBaselineClassifier()
	_, err := c.Predict(context.Background(), make([]float32, 10))
	assert.Error(t, err)
}

func TestBaselineRegressorNonNegative(t *testing.T) {
	r := NewBaselineRegressor()
	require.Equal(t, 7, r.NumFeatures())

	out, err := r.Predict(context.Background(), []float64{0, 0, 0, 15, 20, 0, 0})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out, 0.0)
}

func TestBaselineRegressorRejectsBadShape(t *testing.T) {
	r := NewBaselineRegressor()
	_, err := r.Predict(context.Background(), []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestFactoriesRejectUnknownProvider(t *testing.T) {
	_, err := NewClassifier(&badProviderCfg)
	assert.Error(t, err)
	_, err = NewRegressor(&badProviderCfg)
	assert.Error(t, err)
}
