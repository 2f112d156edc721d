package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"autoflow/workshop-service/internal/auth"
	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/seed"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/store/memory"
	"autoflow/workshop-service/internal/validation"
)

type fakeStore struct {
	createFn      func(ctx context.Context, input store.CreateJobInput) (models.Job, error)
	getFn         func(ctx context.Context, id int64) (models.Job, error)
	listFn        func(ctx context.Context, filter store.JobFilter) ([]models.Job, error)
	updateFn      func(ctx context.Context, id int64, patch store.JobPatch) (models.Job, error)
	deleteFn      func(ctx context.Context, id int64) error
	createUserFn  func(ctx context.Context, input store.CreateUserInput) (models.User, error)
	getUserFn     func(ctx context.Context, id int64) (models.User, error)
	getUsernameFn func(ctx context.Context, username string) (models.User, error)
}

func (f fakeStore) CreateJob(ctx context.Context, input store.CreateJobInput) (models.Job, error) {
	if f.createFn == nil {
		return models.Job{}, nil
	}
	return f.createFn(ctx, input)
}

func (f fakeStore) GetJob(ctx context.Context, id int64) (models.Job, error) {
	if f.getFn == nil {
		return models.Job{}, store.ErrJobNotFound
	}
	return f.getFn(ctx, id)
}

func (f fakeStore) ListJobs(ctx context.Context, filter store.JobFilter) ([]models.Job, error) {
	if f.listFn == nil {
		return []models.Job{}, nil
	}
	return f.listFn(ctx, filter)
}

func (f fakeStore) UpdateJob(ctx context.Context, id int64, patch store.JobPatch) (models.Job, error) {
	if f.updateFn == nil {
		return models.Job{}, store.ErrJobNotFound
	}
	return f.updateFn(ctx, id, patch)
}

func (f fakeStore) DeleteJob(ctx context.Context, id int64) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func (f fakeStore) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	if f.createUserFn == nil {
		return models.User{}, nil
	}
	return f.createUserFn(ctx, input)
}

func (f fakeStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	if f.getUserFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return f.getUserFn(ctx, id)
}

func (f fakeStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	if f.getUsernameFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return f.getUsernameFn(ctx, username)
}

func (f fakeStore) Close() error { return nil }

type recordedEvent struct {
	eventType string
	job       models.Job
}

type fakePublisher struct {
	events []recordedEvent
}

func (p *fakePublisher) Publish(eventType string, job models.Job) {
	p.events = append(p.events, recordedEvent{eventType: eventType, job: job})
}

func newFakeHandler(st store.Store) *Handler {
	return NewHandler(st, auth.NewService(st, auth.NewSessions(time.Hour, nil)), Options{})
}

type testServer struct {
	handler http.Handler
	store   store.Store
	events  *fakePublisher
}

func newTestServer(t *testing.T, policy store.TransitionPolicy) *testServer {
	t.Helper()
	st := memory.NewStore(store.Options{Transitions: policy})
	_, err := seed.Apply(context.Background(), st, seed.Fixture{Users: seed.Default().Users})
	require.NoError(t, err)

	events := &fakePublisher{}
	authService := auth.NewService(st, auth.NewSessions(time.Hour, nil))
	h := NewHandler(st, authService, Options{Events: events, Transitions: policy})
	return &testServer{handler: h.Routes(), store: st, events: events}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func sampleJobPayload(branch string) map[string]interface{} {
	return map[string]interface{}{
		"regNumber":    "GT-1234-22",
		"customerName": "Aminu S.",
		"serviceType":  "Full Service",
		"brand":        "Toyota",
		"status":       "checked-in",
		"branch":       branch,
		"isPriority":   false,
	}
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCreateJobThenList(t *testing.T) {
	srv := newTestServer(t, store.TransitionsPermissive)

	resp := srv.do(t, http.MethodPost, "/api/v1/jobs", "", sampleJobPayload("CFAO Airport"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, "GT-1234-22", created.RegNumber)
	require.False(t, created.IsPriority)

	resp = srv.do(t, http.MethodGet, "/api/v1/jobs", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var jobs []models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	require.Equal(t, created.ID, jobs[0].ID)

	require.Len(t, srv.events.events, 1)
	require.Equal(t, "job.created", srv.events.events[0].eventType)
}

func TestCreateJobValidationError(t *testing.T) {
	srv := newTestServer(t, store.TransitionsPermissive)

	payload := sampleJobPayload("CFAO Airport")
	payload["customerName"] = "A"
	resp := srv.do(t, http.MethodPost, "/api/v1/jobs", "", payload)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeError(t, resp)
	require.Equal(t, "customerName", body.Field)
	require.Equal(t, "Customer name must be at least 2 characters", body.Message)

	payload["customerName"] = "Al"
	resp = srv.do(t, http.MethodPost, "/api/v1/jobs", "", payload)
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestCreateJobRejectsUnknownFields(t *testing.T) {
	h := newFakeHandler(fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(`{"regNumber":"GT-1","colour":"red"}`)))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateJobRejectsOversizedBody(t *testing.T) {
	h := newFakeHandler(fakeStore{})
	body := `{"regNumber":"` + strings.Repeat("A", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	require.Contains(t, resp.Body.String(), "payload_too_large")
}

func TestCreateJobDefaultsBranchFromSession(t *testing.T) {
	srv := newTestServer(t, store.TransitionsPermissive)
	token := srv.login(t, "sarah@autoflow.com", "password123")

	resp := srv.do(t, http.MethodPost, "/api/v1/jobs", token, sampleJobPayload(""))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "CFAO Airport Workshop", created.Branch)

	resp = srv.do(t, http.MethodPost, "/api/v1/jobs", token, sampleJobPayload("Kumasi"))
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListJobsPassesFilter(t *testing.T) {
	var got store.JobFilter
	h := newFakeHandler(fakeStore{
		listFn: func(ctx context.Context, filter store.JobFilter) ([]models.Job, error) {
			got = filter
			return []models.Job{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/cards?branch=B&status=In%20Diagnostics&priority=true&search=gt", nil)
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "B", got.Branch)
	require.Equal(t, models.StatusInDiagnostics, got.Status)
	require.NotNil(t, got.Priority)
	require.True(t, *got.Priority)
	require.Equal(t, "gt", got.Search)
	require.JSONEq(t, `[]`, resp.Body.String())
}

func TestListJobsBadQuery(t *testing.T) {
	h := newFakeHandler(fakeStore{})
	for _, path := range []string{"/api/v1/jobs?status=finished", "/api/v1/jobs?priority=maybe"} {
		resp := httptest.NewRecorder()
		h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusBadRequest, resp.Code, path)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	h := newFakeHandler(fakeStore{
		listFn: func(ctx context.Context, filter store.JobFilter) ([]models.Job, error) {
			return nil, errors.New("disk on fire")
		},
	})
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.NotContains(t, resp.Body.String(), "disk on fire")
	require.Equal(t, "internal server error", decodeError(t, resp).Message)
}

func TestGetJob(t *testing.T) {
	h := newFakeHandler(fakeStore{
		getFn: func(ctx context.Context, id int64) (models.Job, error) {
			if id == 12 {
				return models.Job{ID: 12, Branch: "A", Status: models.StatusCheckedIn}, nil
			}
			return models.Job{}, store.ErrJobNotFound
		},
	})

	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/12", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/13", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/abc", nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateJobStatus(t *testing.T) {
	srv := newTestServer(t, store.TransitionsPermissive)
	resp := srv.do(t, http.MethodPost, "/api/v1/jobs", "", sampleJobPayload("CFAO Airport"))
	require.Equal(t, http.StatusCreated, resp.Code)
	var created models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	path := fmt.Sprintf("/api/v1/jobs/%d", created.ID)
	resp = srv.do(t, http.MethodPatch, path, "", map[string]interface{}{"status": "work-in-progress", "isPriority": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = srv.do(t, http.MethodGet, path, "", nil)
	var got models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, models.StatusWorkInProgress, got.Status)
	require.True(t, got.IsPriority)
	require.Equal(t, created.ID, got.ID)
	require.True(t, created.CreatedAt.Equal(got.CreatedAt))

	require.Len(t, srv.events.events, 2)
	require.Equal(t, "job.updated", srv.events.events[1].eventType)
}

func TestUpdateJobErrors(t *testing.T) {
	srv := newTestServer(t, store.TransitionsStrict)
	resp := srv.do(t, http.MethodPost, "/api/v1/jobs", "", sampleJobPayload("CFAO Airport"))
	require.Equal(t, http.StatusCreated, resp.Code)
	var created models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	path := fmt.Sprintf("/api/v1/jobs/%d", created.ID)

	resp = srv.do(t, http.MethodPatch, path, "", map[string]interface{}{"status": "ready-for-pickup"})
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "invalid_transition", decodeError(t, resp).Code)

	resp = srv.do(t, http.MethodPatch, path, "", map[string]interface{}{"branch": "Kumasi"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "branch", decodeError(t, resp).Field)

	resp = srv.do(t, http.MethodPatch, "/api/v1/jobs/999", "", map[string]interface{}{"isPriority": true})
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteJob(t *testing.T) {
	srv := newTestServer(t, store.TransitionsPermissive)
	resp := srv.do(t, http.MethodPost, "/api/v1/services/cards", "", sampleJobPayload("CFAO Airport"))
	require.Equal(t, http.StatusCreated, resp.Code)
	var created models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	path := fmt.Sprintf("/api/v1/services/cards/%d", created.ID)
	resp = srv.do(t, http.MethodDelete, path, "", nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Empty(t, resp.Body.String())

	resp = srv.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = srv.do(t, http.MethodDelete, path, "", nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	require.Len(t, srv.events.events, 2, "deleting an absent job publishes nothing")
	require.Equal(t, "job.deleted", srv.events.events[1].eventType)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newFakeHandler(fakeStore{})
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestStatuses(t *testing.T) {
	srv := newTestServer(t, store.TransitionsStrict)
	resp := srv.do(t, http.MethodGet, "/api/v1/statuses", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var statuses []statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statuses))
	require.Len(t, statuses, 5)
	require.Equal(t, models.StatusCheckedIn, statuses[0].Slug)
	require.Equal(t, "blue", statuses[0].Accent)
	require.Equal(t, []models.Status{models.StatusWorkInProgress}, statuses[4].Next)
}

func TestJobOptions(t *testing.T) {
	srv := newTestServer(t, store.TransitionsPermissive)
	resp := srv.do(t, http.MethodGet, "/api/v1/job-options", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var options jobOptionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&options))
	require.Equal(t, validation.ServiceTypes, options.ServiceTypes)
	require.Contains(t, options.Brands, "Toyota")

	require.Equal(t, http.StatusMethodNotAllowed, srv.do(t, http.MethodPost, "/api/v1/job-options", "", nil).Code)
}

func TestHealth(t *testing.T) {
	h := newFakeHandler(fakeStore{})
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}
