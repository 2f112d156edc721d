package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"autoflow/workshop-service/internal/models"
)

func TestSummarizeCountsObservedStatuses(t *testing.T) {
	jobs := []models.Job{
		{ID: 1, Status: models.StatusCheckedIn, Branch: "A"},
		{ID: 2, Status: models.StatusCheckedIn, Branch: "A"},
		{ID: 3, Status: models.StatusReadyForPickup, Branch: "B"},
	}

	summary := Summarize(jobs)
	require.Equal(t, map[models.Status]int{
		models.StatusCheckedIn:      2,
		models.StatusReadyForPickup: 1,
	}, summary.StatusCounts)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 0, summary.Priority)
	require.Equal(t, 2, summary.InQueue)
	require.Equal(t, map[string]int{"A": 2, "B": 1}, summary.ByBranch)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	require.Zero(t, summary.Total)
	require.Empty(t, summary.StatusCounts)

	all := summary.AllStatusCounts()
	require.Len(t, all, len(models.Statuses))
	for _, status := range models.Statuses {
		require.Zero(t, all[status])
	}
}

func TestPriorityCount(t *testing.T) {
	summary := Summarize([]models.Job{
		{Status: models.StatusWorkInProgress, IsPriority: true},
		{Status: models.StatusInDiagnostics},
		{Status: models.StatusReadyForPickup, IsPriority: true},
	})
	require.Equal(t, 2, summary.Priority)
	require.Equal(t, 2, summary.InQueue)
}

func TestAllStatusCountsKeepsObserved(t *testing.T) {
	summary := Summarize([]models.Job{{Status: models.StatusWaitingForParts}})
	all := summary.AllStatusCounts()
	require.Equal(t, 1, all[models.StatusWaitingForParts])
	require.Equal(t, 0, all[models.StatusCheckedIn])
	require.Len(t, summary.StatusCounts, 1, "zero-filling must not touch the summary")
}

func TestForBranch(t *testing.T) {
	jobs := []models.Job{
		{Status: models.StatusCheckedIn, Branch: "CFAO Airport"},
		{Status: models.StatusCheckedIn, Branch: "Kumasi"},
		{Status: models.StatusWorkInProgress, Branch: "CFAO Airport", IsPriority: true},
	}

	scoped := ForBranch(jobs, "CFAO Airport")
	require.Equal(t, 2, scoped.Total)
	require.Equal(t, 1, scoped.Priority)
	require.Equal(t, map[string]int{"CFAO Airport": 2}, scoped.ByBranch)

	require.Equal(t, 3, ForBranch(jobs, models.AllBranches).Total)
	require.Equal(t, 3, ForBranch(jobs, "").Total)
	require.Zero(t, ForBranch(jobs, "Nowhere").Total)
}
