// Package httpapi exposes the survey service over JSON/HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const apiPrefix = "/survey/api/v1"

// NewRouter mounts every survey route. metrics may be nil.
func NewRouter(h *SurveyHandler, metrics http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/months", h.ListMonths)
		r.Post("/submissions/validate", h.ValidateDraft)

		r.Route("/months/{month}", func(r chi.Router) {
			r.Post("/submissions", h.CreateSubmission)
			r.Get("/submissions", h.ListSubmissions)
			r.Get("/submissions/{id}/validation", h.GetSubmissionValidation)
			r.Get("/rollups", h.GetRollup)
			r.Get("/rollups/export", h.ExportRollup)
			r.Get("/care-burden", h.GetCareBurden)
			r.Post("/alerts/briefing", h.PostAlertBriefing)
		})

		r.Get("/institutions", h.ListInstitutions)
		r.Put("/institutions/{code}", h.PutInstitution)
		r.Post("/institutions/import", h.ImportInstitutions)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
