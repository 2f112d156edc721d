package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

var _ store.Store = (*Store)(nil)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id BIGSERIAL PRIMARY KEY,
	queue_number INTEGER NOT NULL,
	reg_number TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	service_type TEXT NOT NULL,
	brand TEXT NOT NULL,
	status TEXT NOT NULL,
	branch TEXT NOT NULL,
	is_priority BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_branch ON jobs (branch);
CREATE TABLE IF NOT EXISTS branch_queue_counters (
	branch TEXT PRIMARY KEY,
	last_number INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	password TEXT NOT NULL,
	branch TEXT NOT NULL,
	role TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (lower(username));
`

const jobColumns = `id, queue_number, reg_number, customer_name, service_type, brand, status, branch, is_priority, created_at`

type Store struct {
	pool    *pgxpool.Pool
	options store.Options
	now     func() time.Time
}

func NewStore(pool *pgxpool.Pool, options store.Options) *Store {
	return &Store{pool: pool, options: options, now: options.Clock()}
}

// Migrate creates the tables the store needs. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateJob(ctx context.Context, input store.CreateJobInput) (models.Job, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Job{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var queueNumber int
	queueNumber, err = nextQueueNumber(ctx, tx, input.Branch, input.QueueNumber)
	if err != nil {
		return models.Job{}, err
	}
	job := store.NewJob(0, queueNumber, input, s.now())
	job.CreatedAt = job.CreatedAt.Truncate(time.Microsecond)

	row := tx.QueryRow(ctx, `
		INSERT INTO jobs (queue_number, reg_number, customer_name, service_type, brand, status, branch, is_priority, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, job.QueueNumber, job.RegNumber, job.CustomerName, job.ServiceType, job.Brand, string(job.Status), job.Branch, job.IsPriority, job.CreatedAt)
	if err = row.Scan(&job.ID); err != nil {
		return models.Job{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, store.ErrJobNotFound
	}
	return job, err
}

func (s *Store) ListJobs(ctx context.Context, filter store.JobFilter) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE TRUE`
	var args []interface{}
	if !models.IsAllBranches(filter.Branch) {
		args = append(args, filter.Branch)
		query += fmt.Sprintf(" AND branch = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND is_priority = $%d", len(args))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, term)
		n := len(args)
		query += fmt.Sprintf(" AND (strpos(lower(customer_name), lower($%d)) > 0 OR strpos(lower(reg_number), lower($%d)) > 0)", n, n)
	}
	query += " ORDER BY id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Store) UpdateJob(ctx context.Context, id int64, patch store.JobPatch) (models.Job, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Job{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current models.Job
	current, err = scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		err = store.ErrJobNotFound
		return models.Job{}, err
	}
	if err != nil {
		return models.Job{}, err
	}
	var job models.Job
	job, err = store.ApplyPatch(current, patch, s.options.Transitions)
	if err != nil {
		return models.Job{}, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE jobs
		SET queue_number = $2, reg_number = $3, customer_name = $4, service_type = $5, brand = $6, status = $7, is_priority = $8
		WHERE id = $1
	`, id, job.QueueNumber, job.RegNumber, job.CustomerName, job.ServiceType, job.Brand, string(job.Status), job.IsPriority)
	if err != nil {
		return models.Job{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	user := store.NewUser(0, input)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password, branch, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, user.Username, user.Password, user.Branch, string(user.Role))
	if err := row.Scan(&user.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, store.ErrUsernameTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, `lower(username) = lower($1)`, strings.TrimSpace(username))
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (models.User, error) {
	var user models.User
	var role string
	row := s.pool.QueryRow(ctx, `SELECT id, username, password, branch, role FROM users WHERE `+where, arg)
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Branch, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	return user, nil
}

// nextQueueNumber takes a row lock on the branch counter so concurrent
// creates in one branch never share a number.
func nextQueueNumber(ctx context.Context, tx pgx.Tx, branch string, requested int) (int, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO branch_queue_counters (branch, last_number) VALUES ($1, 0)
		ON CONFLICT (branch) DO NOTHING
	`, branch); err != nil {
		return 0, err
	}
	var last int
	if err := tx.QueryRow(ctx, `
		SELECT last_number FROM branch_queue_counters WHERE branch = $1 FOR UPDATE
	`, branch).Scan(&last); err != nil {
		return 0, err
	}
	counters := store.QueueCounters{branch: last}
	next := counters.Next(branch, requested)
	if _, err := tx.Exec(ctx, `
		UPDATE branch_queue_counters SET last_number = $2 WHERE branch = $1
	`, branch, counters[branch]); err != nil {
		return 0, err
	}
	return next, nil
}

func scanJob(row pgx.Row) (models.Job, error) {
	var job models.Job
	var status string
	if err := row.Scan(&job.ID, &job.QueueNumber, &job.RegNumber, &job.CustomerName, &job.ServiceType, &job.Brand, &status, &job.Branch, &job.IsPriority, &job.CreatedAt); err != nil {
		return models.Job{}, err
	}
	job.Status = models.Status(status)
	job.CreatedAt = job.CreatedAt.UTC()
	return job, nil
}
