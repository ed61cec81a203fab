// Package api provides HTTP router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/epiwatch/sentinel/internal/config"
	"github.com/epiwatch/sentinel/internal/database"
	"github.com/epiwatch/sentinel/internal/predictor"
	"github.com/epiwatch/sentinel/internal/session"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, sessions *session.Manager, store database.Store, classifier predictor.ImageClassifier, regressor predictor.CaseRegressor) http.Handler {
	r := chi.NewRouter()

	handler := NewHandler(store, classifier, regressor)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no session required)
		r.Get("/health", handler.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(sessions))
			r.Use(AuditMiddleware(store))
			r.Use(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute))

			// Detection workflow
			r.Post("/detection/image", handler.SubmitImage)
			r.Post("/detection/analyze", handler.RunAnalysis)
			r.Post("/detection/reset", handler.ResetDetection)
			r.Get("/detection/session", handler.GetDetectionSession)

			// Forecast workflow
			r.Post("/forecast", handler.RunForecast)
			r.Post("/forecast/reset", handler.ResetForecast)
			r.Get("/forecast/session", handler.GetForecastSession)

			// Analytics
			r.Get("/dashboard", handler.Dashboard)
			r.Get("/history/detections", handler.ListDetections)
			r.Get("/history/forecasts", handler.ListForecasts)
			r.Get("/audit", handler.GetAuditLogs)

			// Cosmetic progress stream
			r.Get("/progress", handler.StreamProgress)
		})
	})

	// Serve a minimal landing page if enabled
	if cfg.Server.EnableUI {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Sentinel - Malaria AI</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #2563eb; }
        code { background: #f1f5f9; padding: 2px 6px; border-radius: 4px; }
        .endpoint { margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Sentinel API</h1>
    <p>Malaria detection and forecasting API is running. Use the endpoints below:</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>GET /api/v1/health</code> - Health and model status</div>
    <div class="endpoint"><code>POST /api/v1/detection/image</code> - Upload a blood-smear image</div>
    <div class="endpoint"><code>POST /api/v1/detection/analyze</code> - Run the analysis</div>
    <div class="endpoint"><code>POST /api/v1/detection/reset</code> - Reset the detection session</div>
    <div class="endpoint"><code>GET /api/v1/detection/session</code> - Current detection state</div>
    <div class="endpoint"><code>POST /api/v1/forecast</code> - Run an epidemiological forecast</div>
    <div class="endpoint"><code>GET /api/v1/forecast/session</code> - Current forecast state</div>
    <div class="endpoint"><code>GET /api/v1/dashboard</code> - Aggregated analytics</div>
    <div class="endpoint"><code>GET /api/v1/history/detections</code> - Detection history</div>
    <div class="endpoint"><code>GET /api/v1/history/forecasts</code> - Forecast history</div>
    <div class="endpoint"><code>GET /api/v1/progress</code> - Websocket progress stream</div>

    <h2>Sessions</h2>
    <p>Pass the <code>X-Session-ID</code> header returned by your first request to keep working in the same session.</p>
</body>
</html>`))
		})
	}

	return r
}
