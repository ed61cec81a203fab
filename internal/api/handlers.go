// Package api provides HTTP API handlers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/epiwatch/sentinel/internal/database"
	"github.com/epiwatch/sentinel/internal/detect"
	"github.com/epiwatch/sentinel/internal/forecast"
	"github.com/epiwatch/sentinel/internal/models"
	"github.com/epiwatch/sentinel/internal/predictor"
)

// maxUploadBytes bounds uploaded image size.
const maxUploadBytes = 10 << 20

// Handler contains all HTTP handlers.
type Handler struct {
	store      database.Store
	classifier predictor.ImageClassifier
	regressor  predictor.CaseRegressor
}

// NewHandler creates a new handler.
func NewHandler(store database.Store, classifier predictor.ImageClassifier, regressor predictor.CaseRegressor) *Handler {
	return &Handler{
		store:      store,
		classifier: classifier,
		regressor:  regressor,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HealthCheck returns the service health and model status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "healthy",
		"models": map[string]string{
			"classifier": h.classifier.Name(),
			"regressor":  h.regressor.Name(),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

// SubmitImage accepts an uploaded blood-smear image for the session.
func (h *Handler) SubmitImage(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	raw, err := readImageBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := sess.Detection.SubmitImage(raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// RunAnalysis dispatches inference for the session's staged image.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	snapshot, err := sess.Detection.RunAnalysis(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ResetDetection clears the session's detection state.
func (h *Handler) ResetDetection(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	writeJSON(w, http.StatusOK, sess.Detection.Reset())
}

// GetDetectionSession returns a read-only snapshot of the detection state.
func (h *Handler) GetDetectionSession(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	writeJSON(w, http.StatusOK, sess.Detection.Snapshot())
}

// RunForecast validates and executes a forecast request.
func (h *Handler) RunForecast(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req models.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := sess.Forecast.Run(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// GetForecastSession returns a read-only snapshot of the forecast state.
func (h *Handler) GetForecastSession(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	writeJSON(w, http.StatusOK, sess.Forecast.Snapshot())
}

// ResetForecast clears the session's forecast state.
func (h *Handler) ResetForecast(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	writeJSON(w, http.StatusOK, sess.Forecast.Reset())
}

// Dashboard returns aggregated history metrics.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.DashboardStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute dashboard stats")
		writeError(w, http.StatusInternalServerError, "Failed to compute dashboard stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListDetections returns paginated detection history.
func (h *Handler) ListDetections(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	records, err := h.store.ListDetections(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list detections")
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"detections": records,
		"limit":      limit,
		"offset":     offset,
	})
}

// ListForecasts returns paginated forecast history.
func (h *Handler) ListForecasts(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	records, err := h.store.ListForecasts(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list forecasts")
		writeError(w, http.StatusInternalServerError, "Failed to list forecasts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"forecasts": records,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetAuditLogs returns paginated audit logs.
func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	logs, err := h.store.GetAuditLogs(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get audit logs")
		writeError(w, http.StatusInternalServerError, "Failed to get audit logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// StreamProgress upgrades to a websocket and forwards the session's
// progress events until the client disconnects.
func (h *Handler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := sess.Progress.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// readImageBody extracts upload bytes from either a multipart form (field
// "image") or the raw request body.
func readImageBody(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New("missing image field")
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(raw) == 0 {
		return nil, errors.New("empty image upload")
	}
	return raw, nil
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var decodeErr *detect.DecodeError
	var validationErr *forecast.ValidationError
	var inferenceErr *predictor.InferenceError

	switch {
	case errors.As(err, &decodeErr), errors.As(err, &validationErr),
		errors.Is(err, detect.ErrNoImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, detect.ErrAnalysisRunning), errors.Is(err, detect.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &inferenceErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("Unexpected error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
