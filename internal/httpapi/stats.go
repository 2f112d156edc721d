package httpapi

import (
	"net/http"
	"strings"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/stats"
	"autoflow/workshop-service/internal/store"
)

type statisticsResponse struct {
	Data statisticsData `json:"data"`
}

type statisticsData struct {
	ServiceStatusCounts map[models.Status]int `json:"serviceStatusCounts"`
	TotalServices       int                   `json:"totalServices"`
	PriorityServices    int                   `json:"priorityServices"`
	Queue               queueStatistics       `json:"queue"`
	Branches            map[string]int        `json:"branches"`
}

type queueStatistics struct {
	TotalInQueue int `json:"totalInQueue"`
}

// handleStatistics summarises the caller's branch. Users on every branch may
// narrow the summary with ?branch=.
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireSession(w, r)
	if !ok {
		return
	}
	branch := info.User.Branch
	if info.User.SeesAllBranches() {
		branch = strings.TrimSpace(r.URL.Query().Get("branch"))
	}

	jobs, err := h.store.ListJobs(r.Context(), store.JobFilter{Branch: branch})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	summary := stats.ForBranch(jobs, branch)
	writeJSON(w, http.StatusOK, statisticsResponse{Data: statisticsData{
		ServiceStatusCounts: summary.AllStatusCounts(),
		TotalServices:       summary.Total,
		PriorityServices:    summary.Priority,
		Queue:               queueStatistics{TotalInQueue: summary.InQueue},
		Branches:            summary.ByBranch,
	}})
}
