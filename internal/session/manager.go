// Package session owns the per-session state records.
//
// Each logical user session holds exactly one detection session and one
// forecast session, lifecycle-managed independently. Sessions share nothing
// mutable with one another; the predictors behind the controllers are
// read-only and safe for concurrent use.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/epiwatch/sentinel/internal/database"
	"github.com/epiwatch/sentinel/internal/detect"
	"github.com/epiwatch/sentinel/internal/forecast"
	"github.com/epiwatch/sentinel/internal/predictor"
	"github.com/epiwatch/sentinel/internal/progress"
)

// Session bundles the state records of one logical user session.
type Session struct {
	ID        string
	Detection *detect.Controller
	Forecast  *forecast.Controller
	Progress  *progress.Broadcaster
	CreatedAt time.Time
}

// Manager creates and resolves sessions by ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	adapter       *detect.Adapter
	regressor     predictor.CaseRegressor
	store         database.Store
	timeout       time.Duration
	stageInterval time.Duration
}

// NewManager wires the shared collaborators used by every session. store may
// be nil.
func NewManager(classifier predictor.ImageClassifier, regressor predictor.CaseRegressor, store database.Store, timeout, stageInterval time.Duration) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		adapter:       detect.NewAdapter(classifier),
		regressor:     regressor,
		store:         store,
		timeout:       timeout,
		stageInterval: stageInterval,
	}
}

// Get returns the session with the given ID, if it exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate resolves id to a session, creating one when id is empty or
// unknown. A fresh ID is issued for empty ids.
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock.
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	} else {
		id = uuid.New().String()
	}

	broadcaster := progress.NewBroadcaster(m.stageInterval)
	s := &Session{
		ID:        id,
		Detection: detect.NewController(m.adapter, m.store, broadcaster, m.timeout),
		Forecast:  forecast.NewController(m.regressor, m.store, m.timeout),
		Progress:  broadcaster,
		CreatedAt: time.Now(),
	}
	m.sessions[id] = s

	log.Debug().Str("session_id", id).Msg("Session created")
	return s
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
