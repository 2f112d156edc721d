// Package memory keeps jobs and users in process memory. Contents are lost
// when the process exits.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

type Store struct {
	mu          sync.Mutex
	options     store.Options
	now         func() time.Time
	jobs        map[int64]models.Job
	order       []int64
	users       map[int64]models.User
	byUsername  map[string]int64
	nextJobID   int64
	nextUserID  int64
	queueCounts store.QueueCounters
}

func NewStore(options store.Options) *Store {
	return &Store{
		options:     options,
		now:         options.Clock(),
		jobs:        make(map[int64]models.Job),
		users:       make(map[int64]models.User),
		byUsername:  make(map[string]int64),
		queueCounts: make(store.QueueCounters),
	}
}

func (s *Store) CreateJob(_ context.Context, input store.CreateJobInput) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextJobID++
	queueNumber := s.queueCounts.Next(input.Branch, input.QueueNumber)
	job := store.NewJob(s.nextJobID, queueNumber, input, s.now())
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return job, nil
}

func (s *Store) GetJob(_ context.Context, id int64) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, store.ErrJobNotFound
	}
	return job, nil
}

func (s *Store) ListJobs(_ context.Context, filter store.JobFilter) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]models.Job, 0, len(s.order))
	for _, id := range s.order {
		if job := s.jobs[id]; store.MatchJob(filter, job) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (s *Store) UpdateJob(_ context.Context, id int64, patch store.JobPatch) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, store.ErrJobNotFound
	}
	updated, err := store.ApplyPatch(job, patch, s.options.Transitions)
	if err != nil {
		return models.Job{}, err
	}
	s.jobs[id] = updated
	return updated, nil
}

func (s *Store) DeleteJob(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return nil
	}
	delete(s.jobs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, input store.CreateUserInput) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usernameKey(input.Username)
	if _, taken := s.byUsername[key]; taken {
		return models.User{}, store.ErrUsernameTaken
	}
	s.nextUserID++
	user := store.NewUser(s.nextUserID, input)
	s.users[user.ID] = user
	s.byUsername[key] = user.ID
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[usernameKey(username)]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) Close() error {
	return nil
}

// Usernames are matched case-insensitively, as emails are.
func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
