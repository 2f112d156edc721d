// Package sqlite stores jobs and users in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	queue_number INTEGER NOT NULL,
	reg_number TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	service_type TEXT NOT NULL,
	brand TEXT NOT NULL,
	status TEXT NOT NULL,
	branch TEXT NOT NULL,
	is_priority INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_branch ON jobs(branch);
CREATE TABLE IF NOT EXISTS branch_queue_counters (
	branch TEXT PRIMARY KEY,
	last_number INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL COLLATE NOCASE UNIQUE,
	password TEXT NOT NULL,
	branch TEXT NOT NULL,
	role TEXT NOT NULL
);
`

const jobColumns = `id, queue_number, reg_number, customer_name, service_type, brand, status, branch, is_priority, created_at`

type Store struct {
	db      *sql.DB
	options store.Options
	now     func() time.Time
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, options store.Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" on a single database and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, options: options, now: options.Clock()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateJob(ctx context.Context, input store.CreateJobInput) (job models.Job, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	queueNumber, err := nextQueueNumber(ctx, tx, input.Branch, input.QueueNumber)
	if err != nil {
		return models.Job{}, err
	}
	job = store.NewJob(0, queueNumber, input, s.now())

	result, err := tx.ExecContext(ctx, `
		INSERT INTO jobs (queue_number, reg_number, customer_name, service_type, brand, status, branch, is_priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.QueueNumber, job.RegNumber, job.CustomerName, job.ServiceType, job.Brand, job.Status, job.Branch, job.IsPriority, job.CreatedAt.UnixNano())
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to insert job: %w", err)
	}
	if job.ID, err = result.LastInsertId(); err != nil {
		return models.Job{}, fmt.Errorf("failed to read job id: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return models.Job{}, fmt.Errorf("failed to commit job: %w", err)
	}
	return job, nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (models.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, store.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Store) ListJobs(ctx context.Context, filter store.JobFilter) ([]models.Job, error) {
	var where []string
	var args []any
	if !models.IsAllBranches(filter.Branch) {
		where = append(where, "branch = ?")
		args = append(args, filter.Branch)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != nil {
		where = append(where, "is_priority = ?")
		args = append(args, *filter.Priority)
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if filter.Search != "" {
		jobs = store.FilterJobs(jobs, store.JobFilter{Search: filter.Search})
	}
	return jobs, nil
}

func (s *Store) UpdateJob(ctx context.Context, id int64, patch store.JobPatch) (job models.Job, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, store.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	job, err = store.ApplyPatch(current, patch, s.options.Transitions)
	if err != nil {
		return models.Job{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET queue_number = ?, reg_number = ?, customer_name = ?, service_type = ?, brand = ?, status = ?, is_priority = ?
		WHERE id = ?
	`, job.QueueNumber, job.RegNumber, job.CustomerName, job.ServiceType, job.Brand, job.Status, job.IsPriority, id)
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to update job: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return models.Job{}, fmt.Errorf("failed to commit job: %w", err)
	}
	return job, nil
}

func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	user := store.NewUser(0, input)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, branch, role) VALUES (?, ?, ?, ?)
	`, user.Username, user.Password, user.Branch, user.Role)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.User{}, store.ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	if user.ID, err = result.LastInsertId(); err != nil {
		return models.User{}, fmt.Errorf("failed to read user id: %w", err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, `username = ?`, strings.TrimSpace(username))
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password, branch, role FROM users WHERE `+where, arg)
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Branch, &user.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func nextQueueNumber(ctx context.Context, tx *sql.Tx, branch string, requested int) (int, error) {
	var last int
	err := tx.QueryRowContext(ctx, `SELECT last_number FROM branch_queue_counters WHERE branch = ?`, branch).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to read queue counter: %w", err)
	}
	counters := store.QueueCounters{branch: last}
	next := counters.Next(branch, requested)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO branch_queue_counters (branch, last_number) VALUES (?, ?)
		ON CONFLICT(branch) DO UPDATE SET last_number = excluded.last_number
	`, branch, counters[branch])
	if err != nil {
		return 0, fmt.Errorf("failed to advance queue counter: %w", err)
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (models.Job, error) {
	var job models.Job
	var createdAt int64
	if err := row.Scan(&job.ID, &job.QueueNumber, &job.RegNumber, &job.CustomerName, &job.ServiceType, &job.Brand, &job.Status, &job.Branch, &job.IsPriority, &createdAt); err != nil {
		return models.Job{}, err
	}
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	return job, nil
}
