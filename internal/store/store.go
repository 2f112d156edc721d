package store

import (
	"context"
	"time"

	"autoflow/workshop-service/internal/models"
)

type CreateJobInput struct {
	QueueNumber  int
	RegNumber    string
	CustomerName string
	ServiceType  string
	Brand        string
	Status       models.Status
	Branch       string
	IsPriority   *bool
}

// JobPatch carries the mutable job fields. A nil field is left unchanged.
type JobPatch struct {
	QueueNumber  *int
	RegNumber    *string
	CustomerName *string
	ServiceType  *string
	Brand        *string
	Status       *models.Status
	IsPriority   *bool
}

type JobFilter struct {
	Branch   string
	Status   models.Status
	Priority *bool
	Search   string
}

type CreateUserInput struct {
	Username string
	Password string
	Branch   string
	Role     models.Role
}

type JobStore interface {
	CreateJob(ctx context.Context, input CreateJobInput) (models.Job, error)
	GetJob(ctx context.Context, id int64) (models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]models.Job, error)
	UpdateJob(ctx context.Context, id int64, patch JobPatch) (models.Job, error)
	DeleteJob(ctx context.Context, id int64) error
}

type UserStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

type Store interface {
	JobStore
	UserStore
	Close() error
}

type Options struct {
	Transitions TransitionPolicy
	Now         func() time.Time
}

// Clock returns the configured clock, defaulting to UTC wall time.
func (o Options) Clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return func() time.Time { return time.Now().UTC() }
}
