package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/epiwatch/sentinel/internal/config"
)

const (
	defaultClassifierInput = 128
	regressorFeatureCount  = 7
)

type serverPredictRequest struct {
	Model  string    `json:"model"`
	Pixels []float32 `json:"pixels,omitempty"`
	Inputs []float64 `json:"inputs,omitempty"`
}

type serverPredictResponse struct {
	Prediction float64 `json:"prediction"`
	Error      string  `json:"error,omitempty"`
}

func serverPredict(ctx context.Context, client *http.Client, url string, reqBody serverPredictRequest) (float64, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result serverPredictResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != "" {
		return 0, fmt.Errorf("model server error: %s", result.Error)
	}

	return result.Prediction, nil
}

// ModelServerClassifier implements ImageClassifier against an HTTP
// inference server hosting the trained detection model.
type ModelServerClassifier struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewModelServerClassifier creates a classifier backed by a model server.
func NewModelServerClassifier(cfg *config.PredictorConfig) (*ModelServerClassifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("model server URL is required")
	}

	model := cfg.Name
	if model == "" {
		model = "malaria-detector"
	}

	return &ModelServerClassifier{
		baseURL:    cfg.URL,
		model:      model,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the backend name.
func (c *ModelServerClassifier) Name() string {
	return "modelserver/" + c.model
}

// InputSize returns the fixed spatial size the model expects.
func (c *ModelServerClassifier) InputSize() int {
	return defaultClassifierInput
}

// Predict sends the normalized tensor to the model server.
func (c *ModelServerClassifier) Predict(ctx context.Context, pixels []float32) (float64, error) {
	return serverPredict(ctx, c.httpClient, c.baseURL+"/v1/predict", serverPredictRequest{
		Model:  c.model,
		Pixels: pixels,
	})
}

// ModelServerRegressor implements CaseRegressor against an HTTP inference
// server hosting the trained forecast model.
type ModelServerRegressor struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewModelServerRegressor creates a regressor backed by a model server.
func NewModelServerRegressor(cfg *config.PredictorConfig) (*ModelServerRegressor, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("model server URL is required")
	}

	model := cfg.Name
	if model == "" {
		model = "case-forecaster"
	}

	return &ModelServerRegressor{
		baseURL:    cfg.URL,
		model:      model,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the backend name.
func (r *ModelServerRegressor) Name() string {
	return "modelserver/" + r.model
}

// NumFeatures returns the feature count the model was trained on.
func (r *ModelServerRegressor) NumFeatures() int {
	return regressorFeatureCount
}

// Predict sends the encoded feature vector to the model server.
func (r *ModelServerRegressor) Predict(ctx context.Context, features []float64) (float64, error) {
	return serverPredict(ctx, r.httpClient, r.baseURL+"/v1/predict", serverPredictRequest{
		Model:  r.model,
		Inputs: features,
	})
}
