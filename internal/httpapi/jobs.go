package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"autoflow/workshop-service/internal/hub"
	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/validation"
)

const myBranchPath = "my-branch"

type createJobRequest struct {
	QueueNumber  int    `json:"queueNumber"`
	RegNumber    string `json:"regNumber"`
	CustomerName string `json:"customerName"`
	ServiceType  string `json:"serviceType"`
	Brand        string `json:"brand"`
	Status       string `json:"status"`
	Branch       string `json:"branch"`
	IsPriority   *bool  `json:"isPriority"`
}

type patchJobRequest struct {
	QueueNumber  *int    `json:"queueNumber"`
	RegNumber    *string `json:"regNumber"`
	CustomerName *string `json:"customerName"`
	ServiceType  *string `json:"serviceType"`
	Brand        *string `json:"brand"`
	Status       *string `json:"status"`
	Branch       *string `json:"branch"`
	IsPriority   *bool   `json:"isPriority"`
}

func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listJobs(w, r)
	case http.MethodPost:
		h.createJob(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	rest = strings.TrimPrefix(rest, "/api/v1/services/cards/")
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if rest == myBranchPath {
		h.handleMyBranch(w, r)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getJob(w, r, id)
	case http.MethodPatch:
		h.updateJob(w, r, id)
	case http.MethodDelete:
		h.deleteJob(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// listJobs narrows branch-scoped sessions to their own branch.
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.JobFilter{
		Branch: strings.TrimSpace(query.Get("branch")),
		Search: strings.TrimSpace(query.Get("search")),
	}
	if raw := query.Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			writeFieldError(w, r, "status", "Unknown status "+strconv.Quote(raw))
			return
		}
		filter.Status = status
	}
	if raw := query.Get("priority"); raw != "" {
		priority, err := strconv.ParseBool(raw)
		if err != nil {
			writeFieldError(w, r, "priority", "priority must be true or false")
			return
		}
		filter.Priority = &priority
	}
	if info, ok := authFromContext(r.Context()); ok && !info.User.SeesAllBranches() {
		if !models.IsAllBranches(filter.Branch) && filter.Branch != info.User.Branch {
			writeStoreError(w, r, errAccessDenied)
			return
		}
		filter.Branch = info.User.Branch
	}

	jobs, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleMyBranch lists the caller's branch; users on every branch get all jobs.
func (h *Handler) handleMyBranch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireSession(w, r)
	if !ok {
		return
	}
	filter := store.JobFilter{}
	if !info.User.SeesAllBranches() {
		filter.Branch = info.User.Branch
	}
	jobs, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input := store.CreateJobInput{
		QueueNumber:  req.QueueNumber,
		RegNumber:    req.RegNumber,
		CustomerName: req.CustomerName,
		ServiceType:  req.ServiceType,
		Brand:        req.Brand,
		Status:       models.Status(req.Status),
		Branch:       req.Branch,
		IsPriority:   req.IsPriority,
	}
	if strings.TrimSpace(input.Branch) == "" {
		if info, ok := authFromContext(r.Context()); ok && !info.User.SeesAllBranches() {
			input.Branch = info.User.Branch
		}
	}
	if err := validation.ValidateCreate(&input); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !canAccessBranch(r, input.Branch) {
		writeStoreError(w, r, errAccessDenied)
		return
	}

	job, err := h.store.CreateJob(r.Context(), input)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	h.publish(hub.EventJobCreated, job)
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, id int64) {
	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !canAccessBranch(r, job.Branch) {
		writeStoreError(w, r, errAccessDenied)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request, id int64) {
	var req patchJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := store.JobPatch{
		QueueNumber:  req.QueueNumber,
		RegNumber:    req.RegNumber,
		CustomerName: req.CustomerName,
		ServiceType:  req.ServiceType,
		Brand:        req.Brand,
		IsPriority:   req.IsPriority,
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		patch.Status = &status
	}
	if err := validation.ValidatePatch(&patch, req.Branch != nil); err != nil {
		writeStoreError(w, r, err)
		return
	}

	current, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !canAccessBranch(r, current.Branch) {
		writeStoreError(w, r, errAccessDenied)
		return
	}

	job, err := h.store.UpdateJob(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	h.publish(hub.EventJobUpdated, job)
	writeJSON(w, http.StatusOK, job)
}

// deleteJob answers 204 whether or not the job existed.
func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request, id int64) {
	job, err := h.store.GetJob(r.Context(), id)
	switch {
	case err == nil:
		if !canAccessBranch(r, job.Branch) {
			writeStoreError(w, r, errAccessDenied)
			return
		}
		if err := h.store.DeleteJob(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		h.publish(hub.EventJobDeleted, job)
	case !errors.Is(err, store.ErrJobNotFound):
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
