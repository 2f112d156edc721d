package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/store/memory"
)

func TestApplyDefault(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore(store.Options{})

	result, err := Apply(ctx, st, Default())
	require.NoError(t, err)
	require.Equal(t, Result{Users: 2, Jobs: 2}, result)

	jobs, err := st.ListJobs(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, 12, jobs[0].QueueNumber)
	require.Equal(t, models.StatusInDiagnostics, jobs[0].Status)
	require.True(t, jobs[1].IsPriority)

	admin, err := st.GetUserByUsername(ctx, "admin@autoflow.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleSuperadmin, admin.Role)
	require.Equal(t, models.AllBranches, admin.Branch)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore(store.Options{})

	_, err := Apply(ctx, st, Default())
	require.NoError(t, err)
	again, err := Apply(ctx, st, Default())
	require.NoError(t, err)
	require.Equal(t, Result{}, again)

	jobs, err := st.ListJobs(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestApplySkipsJobsWhenStoreHasJobs(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore(store.Options{})
	_, err := st.CreateJob(ctx, store.CreateJobInput{
		RegNumber: "XX-0001-26", CustomerName: "Kofi", ServiceType: "Diagnostics",
		Brand: "Suzuki", Status: models.StatusCheckedIn, Branch: "Kumasi",
	})
	require.NoError(t, err)

	result, err := Apply(ctx, st, Default())
	require.NoError(t, err)
	require.Equal(t, 2, result.Users)
	require.Zero(t, result.Jobs)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: kofi@autoflow.com
    password: secret
    branch: Kumasi
jobs:
  - regNumber: KS-4411-23
    customerName: Kofi B.
    serviceType: Brake Repair
    brand: Suzuki
    status: Waiting for Parts
    branch: Kumasi
    isPriority: true
`), 0o644))

	fixture, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, fixture.Users, 1)
	require.Len(t, fixture.Jobs, 1)

	ctx := context.Background()
	st := memory.NewStore(store.Options{})
	result, err := Apply(ctx, st, fixture)
	require.NoError(t, err)
	require.Equal(t, Result{Users: 1, Jobs: 1}, result)

	jobs, err := st.ListJobs(ctx, store.JobFilter{Branch: "Kumasi"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, models.StatusWaitingForParts, jobs[0].Status)
	require.Equal(t, 1, jobs[0].QueueNumber)

	user, err := st.GetUserByUsername(ctx, "kofi@autoflow.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleStaff, user.Role)
}

func TestApplyRejectsInvalidJob(t *testing.T) {
	fixture := Fixture{Jobs: []Job{{RegNumber: "X", CustomerName: "Kofi", ServiceType: "s", Brand: "b", Status: "checked-in", Branch: "A"}}}
	_, err := Apply(context.Background(), memory.NewStore(store.Options{}), fixture)
	require.ErrorContains(t, err, "regNumber")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "failed to read seed file")
}
