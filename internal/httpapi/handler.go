package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"autoflow/workshop-service/internal/auth"
	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/validation"
)

// EventPublisher receives job changes after they are stored.
type EventPublisher interface {
	Publish(eventType string, job models.Job)
}

type Options struct {
	Events      EventPublisher
	Transitions store.TransitionPolicy
}

type Handler struct {
	store       store.Store
	auth        *auth.Service
	events      EventPublisher
	transitions store.TransitionPolicy
}

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewHandler(st store.Store, authService *auth.Service, options Options) *Handler {
	return &Handler{
		store:       st,
		auth:        authService,
		events:      options.Events,
		transitions: options.Transitions,
	}
}

// Routes serves the JSON API. Bearer sessions are resolved for every route.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("/api/v1/auth/me", h.handleMe)
	mux.HandleFunc("/api/v1/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/v1/users", h.handleUsers)
	mux.HandleFunc("/api/v1/jobs", h.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", h.handleJob)
	mux.HandleFunc("/api/v1/services/cards", h.handleJobs)
	mux.HandleFunc("/api/v1/services/cards/", h.handleJob)
	mux.HandleFunc("/api/v1/branches/my-statistics", h.handleStatistics)
	mux.HandleFunc("/api/v1/statuses", h.handleStatuses)
	mux.HandleFunc("/api/v1/job-options", h.handleJobOptions)
	return SessionMiddleware(h.auth, mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type statusResponse struct {
	Slug   models.Status   `json:"slug"`
	Label  string          `json:"label"`
	Accent string          `json:"accent"`
	Order  int             `json:"order"`
	Next   []models.Status `json:"next"`
}

func (h *Handler) handleStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := make([]statusResponse, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		next := store.NextStatuses(h.transitions, status)
		if next == nil {
			next = []models.Status{}
		}
		resp = append(resp, statusResponse{
			Slug:   status,
			Label:  status.Label(),
			Accent: status.Accent(),
			Order:  status.Order(),
			Next:   next,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type jobOptionsResponse struct {
	ServiceTypes []string `json:"serviceTypes"`
	Brands       []string `json:"brands"`
}

// handleJobOptions serves the suggested values for the job form.
func (h *Handler) handleJobOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, jobOptionsResponse{
		ServiceTypes: validation.ServiceTypes,
		Brands:       validation.Brands,
	})
}

func (h *Handler) publish(eventType string, job models.Job) {
	if h.events != nil {
		h.events.Publish(eventType, job)
	}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, errorResponse) {
	var fieldErr *validation.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, errorResponse{Message: fieldErr.Message, Field: fieldErr.Field, Code: "validation_error"}
	case errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound, errorResponse{Message: "job not found", Code: "job_not_found"}
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Message: "user not found", Code: "user_not_found"}
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Message: "status transition not allowed", Field: "status", Code: "invalid_transition"}
	case errors.Is(err, store.ErrUsernameTaken):
		return http.StatusConflict, errorResponse{Message: "username already exists", Field: "username", Code: "username_taken"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Message: "Invalid credentials", Code: "invalid_credentials"}
	case errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized, errorResponse{Message: "invalid session", Code: "unauthorized"}
	case errors.Is(err, errAccessDenied):
		return http.StatusForbidden, errorResponse{Message: "access denied", Code: "access_denied"}
	default:
		return http.StatusInternalServerError, errorResponse{Message: "internal server error", Code: "internal_error"}
	}
}

// writeStoreError maps err to a response. Unclassified errors are logged
// with their detail and reported as a bare 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := mapError(err)
	event := log.Debug()
	if status == http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", requestIDFromRequest(r)).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	log.Debug().
		Str("request_id", requestIDFromRequest(r)).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("code", code).
		Msg(message)
	writeJSON(w, status, errorResponse{Message: message, Code: code})
}

func writeFieldError(w http.ResponseWriter, r *http.Request, field, message string) {
	writeStoreError(w, r, &validation.FieldError{Field: field, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
