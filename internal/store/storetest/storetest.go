// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

// Factory opens an empty store for one test.
type Factory func(t *testing.T, opts store.Options) store.Store

// Clock returns a deterministic clock that advances one second per call.
func Clock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

// SampleJob is the end-to-end example payload.
func SampleJob(branch string) store.CreateJobInput {
	priority := false
	return store.CreateJobInput{
		RegNumber:    "GT-1234-22",
		CustomerName: "Aminu S.",
		ServiceType:  "Full Service",
		Brand:        "Toyota",
		Status:       models.StatusCheckedIn,
		Branch:       branch,
		IsPriority:   &priority,
	}
}

func Run(t *testing.T, open Factory) {
	t.Run("CreateAssignsIncreasingIDs", func(t *testing.T) { testCreateAssignsIncreasingIDs(t, open) })
	t.Run("CreateDefaults", func(t *testing.T) { testCreateDefaults(t, open) })
	t.Run("UpdateStatus", func(t *testing.T) { testUpdateStatus(t, open) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, open) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, open) })
	t.Run("IDsNeverReused", func(t *testing.T) { testIDsNeverReused(t, open) })
	t.Run("ListByBranch", func(t *testing.T) { testListByBranch(t, open) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, open) })
	t.Run("QueueNumbers", func(t *testing.T) { testQueueNumbers(t, open) })
	t.Run("StrictTransitions", func(t *testing.T) { testStrictTransitions(t, open) })
	t.Run("Users", func(t *testing.T) { testUsers(t, open) })
}

func openDefault(t *testing.T, open Factory) store.Store {
	t.Helper()
	st := open(t, store.Options{Transitions: store.TransitionsPermissive, Now: Clock()})
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testCreateAssignsIncreasingIDs(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	var last int64
	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		job, err := st.CreateJob(ctx, SampleJob("CFAO Airport"))
		require.NoError(t, err)
		require.False(t, seen[job.ID], "id %d assigned twice", job.ID)
		require.Greater(t, job.ID, last)
		seen[job.ID] = true
		last = job.ID
	}
}

func testCreateDefaults(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	input := SampleJob("CFAO Airport")
	input.IsPriority = nil
	job, err := st.CreateJob(ctx, input)
	require.NoError(t, err)
	require.False(t, job.IsPriority)
	require.False(t, job.CreatedAt.IsZero())
	require.Equal(t, "GT-1234-22", job.RegNumber)
	require.Equal(t, models.StatusCheckedIn, job.Status)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)
	require.True(t, job.CreatedAt.Equal(got.CreatedAt))
}

func testUpdateStatus(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	created, err := st.CreateJob(ctx, SampleJob("CFAO Airport"))
	require.NoError(t, err)

	status := models.StatusWorkInProgress
	updated, err := st.UpdateJob(ctx, created.ID, store.JobPatch{Status: &status})
	require.NoError(t, err)
	require.Equal(t, status, updated.Status)

	got, err := st.GetJob(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, status, got.Status)
	require.Equal(t, created.ID, got.ID)
	require.True(t, created.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, created.CustomerName, got.CustomerName)
	require.Equal(t, created.Branch, got.Branch)
}

func testUpdateMissing(t *testing.T, open Factory) {
	st := openDefault(t, open)
	priority := true
	_, err := st.UpdateJob(context.Background(), 404, store.JobPatch{IsPriority: &priority})
	require.ErrorIs(t, err, store.ErrJobNotFound)
}

func testDeleteIdempotent(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	job, err := st.CreateJob(ctx, SampleJob("CFAO Airport"))
	require.NoError(t, err)

	require.NoError(t, st.DeleteJob(ctx, job.ID))
	_, err = st.GetJob(ctx, job.ID)
	require.ErrorIs(t, err, store.ErrJobNotFound)
	require.NoError(t, st.DeleteJob(ctx, job.ID))
	require.NoError(t, st.DeleteJob(ctx, 9999))
}

func testIDsNeverReused(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	first, err := st.CreateJob(ctx, SampleJob("A"))
	require.NoError(t, err)
	second, err := st.CreateJob(ctx, SampleJob("A"))
	require.NoError(t, err)
	require.NoError(t, st.DeleteJob(ctx, second.ID))

	third, err := st.CreateJob(ctx, SampleJob("A"))
	require.NoError(t, err)
	require.Greater(t, third.ID, second.ID)
	require.NotEqual(t, first.ID, third.ID)
}

func testListByBranch(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	for _, branch := range []string{"A", "B", "A", "C"} {
		_, err := st.CreateJob(ctx, SampleJob(branch))
		require.NoError(t, err)
	}

	onlyB, err := st.ListJobs(ctx, store.JobFilter{Branch: "B"})
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	require.Equal(t, "B", onlyB[0].Branch)

	onlyA, err := st.ListJobs(ctx, store.JobFilter{Branch: "A"})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	require.Less(t, onlyA[0].ID, onlyA[1].ID)

	all, err := st.ListJobs(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].ID, all[i].ID, "list must keep insertion order")
	}

	sentinel, err := st.ListJobs(ctx, store.JobFilter{Branch: models.AllBranches})
	require.NoError(t, err)
	require.Len(t, sentinel, 4)

	none, err := st.ListJobs(ctx, store.JobFilter{Branch: "Z"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func testListFilters(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	priority := true
	first := SampleJob("A")
	first.IsPriority = &priority
	_, err := st.CreateJob(ctx, first)
	require.NoError(t, err)

	second := SampleJob("A")
	second.CustomerName = "Linda A."
	second.RegNumber = "AS-5678-21"
	second.Status = models.StatusReadyForPickup
	_, err = st.CreateJob(ctx, second)
	require.NoError(t, err)

	byStatus, err := st.ListJobs(ctx, store.JobFilter{Status: models.StatusReadyForPickup})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, "Linda A.", byStatus[0].CustomerName)

	byPriority, err := st.ListJobs(ctx, store.JobFilter{Priority: &priority})
	require.NoError(t, err)
	require.Len(t, byPriority, 1)
	require.True(t, byPriority[0].IsPriority)

	bySearch, err := st.ListJobs(ctx, store.JobFilter{Search: "as-56"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, "AS-5678-21", bySearch[0].RegNumber)
}

func testQueueNumbers(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	a1, err := st.CreateJob(ctx, SampleJob("A"))
	require.NoError(t, err)
	require.Equal(t, 1, a1.QueueNumber)

	requested := SampleJob("A")
	requested.QueueNumber = 12
	a12, err := st.CreateJob(ctx, requested)
	require.NoError(t, err)
	require.Equal(t, 12, a12.QueueNumber)

	a13, err := st.CreateJob(ctx, SampleJob("A"))
	require.NoError(t, err)
	require.Equal(t, 13, a13.QueueNumber)

	b1, err := st.CreateJob(ctx, SampleJob("B"))
	require.NoError(t, err)
	require.Equal(t, 1, b1.QueueNumber)
}

func testStrictTransitions(t *testing.T, open Factory) {
	ctx := context.Background()
	st := open(t, store.Options{Transitions: store.TransitionsStrict, Now: Clock()})
	t.Cleanup(func() { _ = st.Close() })

	job, err := st.CreateJob(ctx, SampleJob("A"))
	require.NoError(t, err)

	skip := models.StatusReadyForPickup
	_, err = st.UpdateJob(ctx, job.ID, store.JobPatch{Status: &skip})
	require.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCheckedIn, got.Status, "rejected patch must not be applied")

	next := models.StatusInDiagnostics
	updated, err := st.UpdateJob(ctx, job.ID, store.JobPatch{Status: &next})
	require.NoError(t, err)
	require.Equal(t, next, updated.Status)
}

func testUsers(t *testing.T, open Factory) {
	ctx := context.Background()
	st := openDefault(t, open)

	user, err := st.CreateUser(ctx, store.CreateUserInput{
		Username: "sarah@autoflow.com",
		Password: "password123",
		Branch:   "CFAO Airport Workshop",
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, models.RoleStaff, user.Role)

	byName, err := st.GetUserByUsername(ctx, "sarah@autoflow.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)
	require.Equal(t, "password123", byName.Password)

	byID, err := st.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "CFAO Airport Workshop", byID.Branch)

	_, err = st.CreateUser(ctx, store.CreateUserInput{Username: "sarah@autoflow.com", Password: "x", Branch: "B"})
	require.ErrorIs(t, err, store.ErrUsernameTaken)

	_, err = st.GetUserByUsername(ctx, "nobody@autoflow.com")
	require.ErrorIs(t, err, store.ErrUserNotFound)
	_, err = st.GetUser(ctx, 999)
	require.ErrorIs(t, err, store.ErrUserNotFound)

	admin, err := st.CreateUser(ctx, store.CreateUserInput{
		Username: "admin@autoflow.com",
		Password: "adminpassword",
		Branch:   models.AllBranches,
		Role:     models.RoleSuperadmin,
	})
	require.NoError(t, err)
	require.Greater(t, admin.ID, user.ID)
	require.Equal(t, models.RoleSuperadmin, admin.Role)
}
