// Package seed loads the starter users and jobs into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/validation"
)

type Fixture struct {
	Users []User `yaml:"users"`
	Jobs  []Job  `yaml:"jobs"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Branch   string `yaml:"branch"`
	Role     string `yaml:"role"`
}

type Job struct {
	QueueNumber  int    `yaml:"queueNumber"`
	RegNumber    string `yaml:"regNumber"`
	CustomerName string `yaml:"customerName"`
	ServiceType  string `yaml:"serviceType"`
	Brand        string `yaml:"brand"`
	Status       string `yaml:"status"`
	Branch       string `yaml:"branch"`
	IsPriority   bool   `yaml:"isPriority"`
}

type Result struct {
	Users int
	Jobs  int
}

const defaultBranch = "CFAO Airport Workshop"

// Default is the built-in demo data.
func Default() Fixture {
	return Fixture{
		Users: []User{
			{Username: "sarah@autoflow.com", Password: "password123", Branch: defaultBranch, Role: string(models.RoleStaff)},
			{Username: "admin@autoflow.com", Password: "adminpassword", Branch: models.AllBranches, Role: string(models.RoleSuperadmin)},
		},
		Jobs: []Job{
			{
				QueueNumber:  12,
				RegNumber:    "GT-1234-22",
				CustomerName: "Aminu S.",
				ServiceType:  "Full Service",
				Brand:        "Toyota",
				Status:       string(models.StatusInDiagnostics),
				Branch:       defaultBranch,
			},
			{
				QueueNumber:  13,
				RegNumber:    "AS-5678-21",
				CustomerName: "Linda A.",
				ServiceType:  "Oil Change (Express)",
				Brand:        "Mitsubishi",
				Status:       string(models.StatusWorkInProgress),
				Branch:       defaultBranch,
				IsPriority:   true,
			},
		},
	}
}

func LoadFile(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return fixture, nil
}

// Apply creates fixture users that do not exist yet, and fixture jobs only
// when the store holds no jobs at all.
func Apply(ctx context.Context, st store.Store, fixture Fixture) (Result, error) {
	var result Result
	for _, user := range fixture.Users {
		_, err := st.GetUserByUsername(ctx, user.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrUserNotFound) {
			return result, err
		}
		role := models.Role(user.Role)
		if role != "" && !models.ValidRole(role) {
			return result, fmt.Errorf("seed user %s: unknown role %q", user.Username, user.Role)
		}
		_, err = st.CreateUser(ctx, store.CreateUserInput{
			Username: user.Username,
			Password: user.Password,
			Branch:   user.Branch,
			Role:     role,
		})
		if err != nil {
			return result, fmt.Errorf("seed user %s: %w", user.Username, err)
		}
		result.Users++
	}

	existing, err := st.ListJobs(ctx, store.JobFilter{})
	if err != nil {
		return result, err
	}
	if len(existing) > 0 {
		return result, nil
	}
	for i, job := range fixture.Jobs {
		priority := job.IsPriority
		input := store.CreateJobInput{
			QueueNumber:  job.QueueNumber,
			RegNumber:    job.RegNumber,
			CustomerName: job.CustomerName,
			ServiceType:  job.ServiceType,
			Brand:        job.Brand,
			Status:       models.Status(job.Status),
			Branch:       job.Branch,
			IsPriority:   &priority,
		}
		if err := validation.ValidateCreate(&input); err != nil {
			return result, fmt.Errorf("seed job %d: %w", i, err)
		}
		if _, err := st.CreateJob(ctx, input); err != nil {
			return result, fmt.Errorf("seed job %d: %w", i, err)
		}
		result.Jobs++
	}
	return result, nil
}
