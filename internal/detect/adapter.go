// Package detect implements the image-analysis workflow: preprocessing,
// classifier invocation and the session state machine around them.
package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for uploaded images
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/epiwatch/sentinel/internal/predictor"
)

// DecodeError reports input bytes that are not a valid raster image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Adapter preprocesses uploaded images and invokes the classifier. It is
// stateless and safe to share across sessions.
type Adapter struct {
	classifier predictor.ImageClassifier
}

// NewAdapter creates an adapter over the given classifier.
func NewAdapter(classifier predictor.ImageClassifier) *Adapter {
	return &Adapter{classifier: classifier}
}

// Decode parses raw upload bytes into an image, wrapping failures as
// DecodeError so callers can reject bad input without session mutation.
func (a *Adapter) Decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// Infer runs the full preprocessing + classification pipeline and derives
// the confidence metric. The returned confidence is max(score, 1-score):
// the model's certainty in whichever class it favors, always in [0.5, 1].
func (a *Adapter) Infer(ctx context.Context, img image.Image) (rawScore, confidence float64, err error) {
	tensor := a.preprocess(img)

	score, err := a.classifier.Predict(ctx, tensor)
	if err != nil {
		return 0, 0, &predictor.InferenceError{Model: a.classifier.Name(), Err: err}
	}
	if score < 0 || score > 1 {
		return 0, 0, &predictor.InferenceError{
			Model: a.classifier.Name(),
			Err:   fmt.Errorf("score %v outside [0,1]", score),
		}
	}

	confidence = score
	if 1-score > confidence {
		confidence = 1 - score
	}
	return score, confidence, nil
}

// Positive applies the presentation classification rule. A tie goes to
// positive.
func Positive(rawScore float64) bool {
	return rawScore >= 0.5
}

// preprocess resizes the image to the classifier's fixed input geometry and
// scales RGB intensities to [0,1], channel order R,G,B per pixel.
func (a *Adapter) preprocess(img image.Image) []float32 {
	size := a.classifier.InputSize()

	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	tensor := make([]float32, 0, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			tensor = append(tensor,
				float32(r>>8)/255,
				float32(g>>8)/255,
				float32(b>>8)/255,
			)
		}
	}
	return tensor
}
