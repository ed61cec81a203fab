package detect

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/epiwatch/sentinel/internal/database"
	"github.com/epiwatch/sentinel/internal/fingerprint"
	"github.com/epiwatch/sentinel/internal/models"
	"github.com/epiwatch/sentinel/internal/progress"
)

var (
	// ErrAnalysisRunning rejects a second analysis while one is in flight.
	ErrAnalysisRunning = errors.New("an analysis is already running for this session")

	// ErrNoImage rejects analysis before any image has been accepted.
	ErrNoImage = errors.New("no image has been submitted")

	// ErrSuperseded reports an analysis whose result was discarded because a
	// different input replaced the session's fingerprint while it ran.
	ErrSuperseded = errors.New("analysis superseded by a new input")
)

// Controller owns one detection session record and serializes all mutations
// to it. A result is valid only for the exact input that produced it: any
// new fingerprint invalidates the prior result, while re-submitting the same
// fingerprint never triggers re-inference.
type Controller struct {
	mu      sync.Mutex
	session models.DetectionSession
	pending image.Image // decoded image for the current fingerprint

	adapter  *Adapter
	store    database.Store        // optional history sink
	progress *progress.Broadcaster // optional cosmetic stream
	timeout  time.Duration
}

// NewController creates an empty detection session controller. store and
// broadcaster may be nil.
func NewController(adapter *Adapter, store database.Store, broadcaster *progress.Broadcaster, timeout time.Duration) *Controller {
	return &Controller{
		session:  models.DetectionSession{Status: models.DetectionEmpty},
		adapter:  adapter,
		store:    store,
		progress: broadcaster,
		timeout:  timeout,
	}
}

// Snapshot returns a read-only copy of the current session state.
func (c *Controller) Snapshot() models.DetectionSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SubmitImage validates and stages an uploaded image. A fingerprint change
// discards any prior result and moves the session to Ready; the same
// fingerprint leaves the session untouched, so a completed result is served
// from cache. Decode failures mutate nothing.
func (c *Controller) SubmitImage(raw []byte) (models.DetectionSession, error) {
	img, err := c.adapter.Decode(raw)
	if err != nil {
		return c.Snapshot(), err
	}

	fp := fingerprint.Sum(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	if fp == c.session.InputFingerprint && c.session.Status != models.DetectionEmpty {
		// Same content resubmitted: keep the cached result or pending state.
		return c.session, nil
	}

	// New input invalidates the prior result. An in-flight analysis is not
	// interrupted; its commit will observe the fingerprint change and drop
	// the stale result.
	c.session = models.DetectionSession{
		Status:           models.DetectionReady,
		InputFingerprint: fp,
	}
	c.pending = img

	log.Debug().Str("fingerprint", fp).Msg("Image accepted")
	return c.session, nil
}

// RunAnalysis dispatches inference for the staged image. Valid only when the
// session is Ready; a Complete session returns the cached result without
// re-inference, and a concurrent call is rejected rather than queued. On
// failure the session reverts to Ready with no partial state.
func (c *Controller) RunAnalysis(ctx context.Context) (models.DetectionSession, error) {
	c.mu.Lock()
	switch c.session.Status {
	case models.DetectionAnalyzing:
		snap := c.session
		c.mu.Unlock()
		return snap, ErrAnalysisRunning
	case models.DetectionEmpty:
		snap := c.session
		c.mu.Unlock()
		return snap, ErrNoImage
	case models.DetectionComplete:
		snap := c.session
		c.mu.Unlock()
		return snap, nil
	}

	fp := c.session.InputFingerprint
	img := c.pending
	c.session.Status = models.DetectionAnalyzing
	c.mu.Unlock()

	if c.progress != nil {
		stop := c.progress.Run(ctx)
		defer stop()
	}

	ictx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	score, confidence, inferErr := c.adapter.Infer(ictx, img)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check identity before committing: a new input may have invalidated
	// this run while inference was in flight.
	if c.session.InputFingerprint != fp {
		return c.session, ErrSuperseded
	}

	if inferErr != nil {
		c.session.Status = models.DetectionReady
		log.Warn().Err(inferErr).Str("fingerprint", fp).Msg("Analysis failed")
		return c.session, inferErr
	}

	now := time.Now()
	positive := Positive(score)
	c.session.Status = models.DetectionComplete
	c.session.RawScore = &score
	c.session.Confidence = &confidence
	c.session.Positive = &positive
	c.session.CompletedAt = &now

	if c.store != nil {
		record := &models.DetectionRecord{
			ID:               uuid.New().String(),
			Fingerprint:      fp,
			RawScore:         score,
			Confidence:       confidence,
			Positive:         positive,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			CreatedAt:        now,
		}
		go func() {
			if err := c.store.SaveDetection(context.Background(), record); err != nil {
				log.Error().Err(err).Msg("Failed to save detection record")
			}
		}()
	}

	log.Info().
		Str("fingerprint", fp).
		Float64("score", score).
		Float64("confidence", confidence).
		Bool("positive", positive).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Analysis complete")

	return c.session, nil
}

// Reset forces the session back to Empty, clearing the fingerprint and any
// result. An in-flight analysis is abandoned: its commit will find the
// fingerprint changed and discard the result.
func (c *Controller) Reset() models.DetectionSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = models.DetectionSession{Status: models.DetectionEmpty}
	c.pending = nil
	return c.session
}
