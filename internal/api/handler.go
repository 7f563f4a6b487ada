// Package api exposes the viewer over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/session"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewer"
)

// DefaultMaxUpload is used when no upload limit is configured
const DefaultMaxUpload = 50 << 20

// Handler serves the document and view state endpoints
type Handler struct {
	viewer    *viewer.Controller
	maxUpload int64
	log       *logrus.Entry
}

// NewHandler creates a handler. maxUpload <= 0 selects DefaultMaxUpload.
func NewHandler(c *viewer.Controller, maxUpload int64, logger *logrus.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		viewer:    c,
		maxUpload: maxUpload,
		log:       logger.WithField("component", "api"),
	}
}

// Routes registers the API endpoints on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/document", h.UploadDocument)
	mux.HandleFunc("GET /api/v1/document/metadata", h.GetMetadata)
	mux.HandleFunc("GET /api/v1/document/text", h.GetText)
	mux.HandleFunc("GET /api/v1/document/outline", h.GetOutline)
	mux.HandleFunc("GET /api/v1/document/images", h.ListImages)
	mux.HandleFunc("GET /api/v1/document/render", h.RenderPage)
	mux.HandleFunc("GET /api/v1/document/file", h.DownloadFile)

	mux.HandleFunc("GET /api/v1/state", h.GetState)
	mux.HandleFunc("POST /api/v1/state/actions", h.DispatchAction)
}

// currentSession writes 404 and returns false when nothing is loaded
func (h *Handler) currentSession(w http.ResponseWriter) (*session.Session, bool) {
	s, err := h.viewer.Session()
	if err != nil {
		respondError(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return s, true
}

// internalError logs err and answers 500 with message
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.log.WithError(err).WithField("path", r.URL.Path).Error(message)
	respondError(w, message, http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogRequests logs one line per request
func LogRequests(next http.Handler, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	})
}

// isTooLarge reports whether err came from an exceeded body limit
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
