package detect

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/sentinel/internal/predictor"
)

// fixedClassifier returns a constant score and records the tensor it was
// given.
type fixedClassifier struct {
	score  float64
	err    error
	tensor []float32
}

func (c *fixedClassifier) Predict(_ context.Context, pixels []float32) (float64, error) {
	c.tensor = pixels
	return c.score, c.err
}

func (c *fixedClassifier) InputSize() int { return 8 }
func (c *fixedClassifier) Name() string   { return "fixed" }

// testPNG encodes a small solid-color image. Different shades produce
// different byte streams, which the controller tests rely on.
func testPNG(t *testing.T, shade uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeRejectsGarbage(t *testing.T) {
	adapter := NewAdapter(&fixedClassifier{})

	_, err := adapter.Decode([]byte("definitely not an image"))
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestDecodeAcceptsPNG(t *testing.T) {
	adapter := NewAdapter(&fixedClassifier{})

	img, err := adapter.Decode(testPNG(t, 100))
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestInferConfidence(t *testing.T) {
	tests := []struct {
		score      float64
		confidence float64
	}{
		{0.0, 1.0},
		{0.2, 0.8},
		{0.5, 0.5}, // tie: the lowest possible confidence
		{0.8, 0.8},
		{1.0, 1.0},
	}

	img, _ := NewAdapter(&fixedClassifier{}).Decode(testPNG(t, 100))
	for _, tt := range tests {
		adapter := NewAdapter(&fixedClassifier{score: tt.score})

		_, confidence, err := adapter.Infer(context.Background(), img)
		require.NoError(t, err, "score=%v", tt.score)
		assert.InDelta(t, tt.confidence, confidence, 1e-9, "score=%v", tt.score)
		assert.GreaterOrEqual(t, confidence, 0.5)
		assert.LessOrEqual(t, confidence, 1.0)
	}
}

func TestInferRejectsOutOfRangeScore(t *testing.T) {
	adapter := NewAdapter(&fixedClassifier{score: 1.5})
	img, _ := adapter.Decode(testPNG(t, 100))

	_, _, err := adapter.Infer(context.Background(), img)
	var ierr *predictor.InferenceError
	assert.ErrorAs(t, err, &ierr)
}

func TestInferWrapsModelError(t *testing.T) {
	adapter := NewAdapter(&fixedClassifier{err: errors.New("model offline")})
	img, _ := adapter.Decode(testPNG(t, 100))

	_, _, err := adapter.Infer(context.Background(), img)
	var ierr *predictor.InferenceError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "fixed", ierr.Model)
}

func TestPreprocessGeometryAndRange(t *testing.T) {
	classifier := &fixedClassifier{score: 0.5}
	adapter := NewAdapter(classifier)
	img, _ := adapter.Decode(testPNG(t, 128))

	_, _, err := adapter.Infer(context.Background(), img)
	require.NoError(t, err)

	size := classifier.InputSize()
	require.Len(t, classifier.tensor, size*size*3)
	for _, v := range classifier.tensor {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestPositiveTieGoesPositive(t *testing.T) {
	assert.True(t, Positive(0.5))
	assert.True(t, Positive(0.9))
	assert.False(t, Positive(0.49))
}
