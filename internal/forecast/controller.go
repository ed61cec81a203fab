package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/epiwatch/sentinel/internal/database"
	"github.com/epiwatch/sentinel/internal/models"
	"github.com/epiwatch/sentinel/internal/predictor"
)

// Controller owns one forecast session record. Each forecast is a complete,
// self-contained computation: the record transitions to Complete atomically
// and a new request re-derives it in full, so there is no in-progress state
// to invalidate.
type Controller struct {
	mu      sync.Mutex
	session models.ForecastSession

	regressor predictor.CaseRegressor
	store     database.Store // optional history sink
	timeout   time.Duration
}

// NewController creates an idle forecast session controller. store may be
// nil.
func NewController(regressor predictor.CaseRegressor, store database.Store, timeout time.Duration) *Controller {
	return &Controller{
		session:   models.ForecastSession{Status: models.ForecastIdle},
		regressor: regressor,
		store:     store,
		timeout:   timeout,
	}
}

// Snapshot returns a read-only copy of the current session state.
func (c *Controller) Snapshot() models.ForecastSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Run validates the request, encodes it, invokes the regressor and commits
// the adjusted result. Validation and inference failures leave the session
// exactly as it was.
func (c *Controller) Run(ctx context.Context, req models.ForecastRequest) (models.ForecastSession, error) {
	features, err := Encode(&req)
	if err != nil {
		return c.Snapshot(), err
	}

	ictx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	base, err := c.regressor.Predict(ictx, features)
	if err != nil {
		return c.Snapshot(), &predictor.InferenceError{Model: c.regressor.Name(), Err: err}
	}

	cases, risk := Adjust(base, req.PopulationTier, req.HealthcareIndex)
	confidence := ModelConfidence(req.HealthcareIndex)
	now := time.Now()

	c.mu.Lock()
	c.session = models.ForecastSession{
		Status:             models.ForecastComplete,
		Request:            &req,
		PredictedCases:     &cases,
		RiskLevel:          risk,
		ModelConfidencePct: &confidence,
		CompletedAt:        &now,
	}
	snap := c.session
	c.mu.Unlock()

	if c.store != nil {
		record := &models.ForecastRecord{
			ID:                 uuid.New().String(),
			Country:            req.Country,
			City:               req.City,
			Month:              req.Month,
			PredictedCases:     cases,
			RiskLevel:          risk,
			ModelConfidencePct: confidence,
			CreatedAt:          now,
		}
		go func() {
			if err := c.store.SaveForecast(context.Background(), record); err != nil {
				log.Error().Err(err).Msg("Failed to save forecast record")
			}
		}()
	}

	log.Info().
		Str("country", req.Country).
		Str("city", req.City).
		Str("month", req.Month).
		Float64("base_prediction", base).
		Int("predicted_cases", cases).
		Str("risk_level", string(risk)).
		Msg("Forecast complete")

	return snap, nil
}

// Reset clears the session back to Idle.
func (c *Controller) Reset() models.ForecastSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = models.ForecastSession{Status: models.ForecastIdle}
	return c.session
}
