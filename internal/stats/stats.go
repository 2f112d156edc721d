// Package stats derives dashboard figures from a job collection. Nothing is
// cached; callers summarise whatever slice they read from the store.
package stats

import "autoflow/workshop-service/internal/models"

type Summary struct {
	StatusCounts map[models.Status]int
	Total        int
	Priority     int
	// InQueue counts jobs that are not ready for pickup yet.
	InQueue  int
	ByBranch map[string]int
}

// Summarize counts jobs by status, branch and priority. StatusCounts only
// holds statuses that occur in jobs.
func Summarize(jobs []models.Job) Summary {
	summary := Summary{
		StatusCounts: make(map[models.Status]int),
		ByBranch:     make(map[string]int),
	}
	for _, job := range jobs {
		summary.Total++
		summary.StatusCounts[job.Status]++
		summary.ByBranch[job.Branch]++
		if job.IsPriority {
			summary.Priority++
		}
		if job.Status != models.StatusReadyForPickup {
			summary.InQueue++
		}
	}
	return summary
}

// AllStatusCounts returns StatusCounts with every known status present.
func (s Summary) AllStatusCounts() map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}
	for status, n := range s.StatusCounts {
		counts[status] = n
	}
	return counts
}

// ForBranch summarises only the jobs in branch. The all-branches sentinel
// summarises everything.
func ForBranch(jobs []models.Job, branch string) Summary {
	if models.IsAllBranches(branch) {
		return Summarize(jobs)
	}
	scoped := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Branch == branch {
			scoped = append(scoped, job)
		}
	}
	return Summarize(scoped)
}
