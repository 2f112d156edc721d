package store

import (
	"fmt"
	"strings"
	"time"

	"autoflow/workshop-service/internal/models"
)

// NewJob builds the record a driver stores for input, stamped with now.
func NewJob(id int64, queueNumber int, input CreateJobInput, now time.Time) models.Job {
	priority := false
	if input.IsPriority != nil {
		priority = *input.IsPriority
	}
	return models.Job{
		ID:           id,
		QueueNumber:  queueNumber,
		RegNumber:    input.RegNumber,
		CustomerName: input.CustomerName,
		ServiceType:  input.ServiceType,
		Brand:        input.Brand,
		Status:       input.Status,
		Branch:       input.Branch,
		IsPriority:   priority,
		CreatedAt:    now.UTC(),
	}
}

// ApplyPatch merges patch over job. ID, CreatedAt and Branch are never touched.
func ApplyPatch(job models.Job, patch JobPatch, policy TransitionPolicy) (models.Job, error) {
	if patch.Status != nil && !ValidTransition(policy, job.Status, *patch.Status) {
		return models.Job{}, fmt.Errorf("%s -> %s: %w", job.Status, *patch.Status, ErrInvalidTransition)
	}
	if patch.QueueNumber != nil {
		job.QueueNumber = *patch.QueueNumber
	}
	if patch.RegNumber != nil {
		job.RegNumber = *patch.RegNumber
	}
	if patch.CustomerName != nil {
		job.CustomerName = *patch.CustomerName
	}
	if patch.ServiceType != nil {
		job.ServiceType = *patch.ServiceType
	}
	if patch.Brand != nil {
		job.Brand = *patch.Brand
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.IsPriority != nil {
		job.IsPriority = *patch.IsPriority
	}
	return job, nil
}

func MatchJob(filter JobFilter, job models.Job) bool {
	if !models.IsAllBranches(filter.Branch) && job.Branch != filter.Branch {
		return false
	}
	if filter.Status != "" && job.Status != filter.Status {
		return false
	}
	if filter.Priority != nil && job.IsPriority != *filter.Priority {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		if !strings.Contains(strings.ToLower(job.CustomerName), term) &&
			!strings.Contains(strings.ToLower(job.RegNumber), term) {
			return false
		}
	}
	return true
}

func FilterJobs(jobs []models.Job, filter JobFilter) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if MatchJob(filter, job) {
			out = append(out, job)
		}
	}
	return out
}

// QueueCounters hands out display queue numbers per branch.
type QueueCounters map[string]int

// Next returns requested when it is positive, otherwise the branch's next
// number. The counter never moves backwards.
func (c QueueCounters) Next(branch string, requested int) int {
	n := requested
	if n <= 0 {
		n = c[branch] + 1
	}
	if n > c[branch] {
		c[branch] = n
	}
	return n
}
