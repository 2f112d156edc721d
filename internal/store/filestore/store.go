// Package filestore persists jobs and users as a single JSON document.
// Every mutation is a locked read-modify-write of that file, so several
// processes may share one path.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	path    string
	lock    *flock.Flock
	options store.Options
	now     func() time.Time
}

type snapshot struct {
	NextJobID     int64               `json:"nextJobId"`
	NextUserID    int64               `json:"nextUserId"`
	QueueCounters store.QueueCounters `json:"queueCounters"`
	Jobs          []models.Job        `json:"jobs"`
	Users         []userRecord        `json:"users"`
}

// models.User hides the password from JSON, so users get their own shape on disk.
type userRecord struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Branch   string      `json:"branch"`
	Role     models.Role `json:"role"`
}

func (r userRecord) user() models.User {
	return models.User{ID: r.ID, Username: r.Username, Password: r.Password, Branch: r.Branch, Role: r.Role}
}

func NewStore(path string, options store.Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("filestore: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &Store{
		path:    path,
		lock:    flock.New(path + ".lock"),
		options: options,
		now:     options.Clock(),
	}, nil
}

func (s *Store) CreateJob(_ context.Context, input store.CreateJobInput) (models.Job, error) {
	var job models.Job
	err := s.update(func(snap *snapshot) error {
		snap.NextJobID++
		queueNumber := snap.QueueCounters.Next(input.Branch, input.QueueNumber)
		job = store.NewJob(snap.NextJobID, queueNumber, input, s.now())
		snap.Jobs = append(snap.Jobs, job)
		return nil
	})
	return job, err
}

func (s *Store) GetJob(_ context.Context, id int64) (models.Job, error) {
	snap, err := s.read()
	if err != nil {
		return models.Job{}, err
	}
	if i := indexJob(snap.Jobs, id); i >= 0 {
		return snap.Jobs[i], nil
	}
	return models.Job{}, store.ErrJobNotFound
}

func (s *Store) ListJobs(_ context.Context, filter store.JobFilter) ([]models.Job, error) {
	snap, err := s.read()
	if err != nil {
		return nil, err
	}
	return store.FilterJobs(snap.Jobs, filter), nil
}

func (s *Store) UpdateJob(_ context.Context, id int64, patch store.JobPatch) (models.Job, error) {
	var job models.Job
	err := s.update(func(snap *snapshot) error {
		i := indexJob(snap.Jobs, id)
		if i < 0 {
			return store.ErrJobNotFound
		}
		updated, err := store.ApplyPatch(snap.Jobs[i], patch, s.options.Transitions)
		if err != nil {
			return err
		}
		snap.Jobs[i] = updated
		job = updated
		return nil
	})
	return job, err
}

func (s *Store) DeleteJob(_ context.Context, id int64) error {
	return s.update(func(snap *snapshot) error {
		if i := indexJob(snap.Jobs, id); i >= 0 {
			snap.Jobs = append(snap.Jobs[:i], snap.Jobs[i+1:]...)
		}
		return nil
	})
}

func (s *Store) CreateUser(_ context.Context, input store.CreateUserInput) (models.User, error) {
	var user models.User
	err := s.update(func(snap *snapshot) error {
		if indexUsername(snap.Users, input.Username) >= 0 {
			return store.ErrUsernameTaken
		}
		snap.NextUserID++
		user = store.NewUser(snap.NextUserID, input)
		snap.Users = append(snap.Users, userRecord(user))
		return nil
	})
	return user, err
}

func (s *Store) GetUser(_ context.Context, id int64) (models.User, error) {
	snap, err := s.read()
	if err != nil {
		return models.User{}, err
	}
	for _, record := range snap.Users {
		if record.ID == id {
			return record.user(), nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	snap, err := s.read()
	if err != nil {
		return models.User{}, err
	}
	if i := indexUsername(snap.Users, username); i >= 0 {
		return snap.Users[i].user(), nil
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Close()
}

func (s *Store) read() (snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		return snapshot{}, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.load()
}

func (s *Store) update(mutate func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	snap, err := s.load()
	if err != nil {
		return err
	}
	if err := mutate(&snap); err != nil {
		return err
	}
	return s.save(snap)
}

func (s *Store) load() (snapshot, error) {
	snap := snapshot{QueueCounters: store.QueueCounters{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("failed to parse store file: %w", err)
	}
	if snap.QueueCounters == nil {
		snap.QueueCounters = store.QueueCounters{}
	}
	return snap, nil
}

// save writes through a temp file so a crash never leaves a torn document.
func (s *Store) save(snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func indexJob(jobs []models.Job, id int64) int {
	for i, job := range jobs {
		if job.ID == id {
			return i
		}
	}
	return -1
}

func indexUsername(users []userRecord, username string) int {
	key := strings.TrimSpace(username)
	for i, record := range users {
		if strings.EqualFold(record.Username, key) {
			return i
		}
	}
	return -1
}
