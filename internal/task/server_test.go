package task_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valethq/valet/internal/task"
	taskrepo "github.com/valethq/valet/internal/task/repositoryimpl"
	"github.com/valethq/valet/pkg/cerr"
	"github.com/valethq/valet/pkg/storage"
)

type fakeLifecycle struct {
	submitted *task.SubmitRequest
	completed string
	repo      task.Repository
}

func (f *fakeLifecycle) Submit(ctx context.Context, req *task.SubmitRequest) (*task.Task, error) {
	f.submitted = req
	now := time.Now()
	t := &task.Task{
		ID:              "01SUBMITTED",
		OriginalRequest: req.Text,
		Status:          task.StatusPlanned,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return t, f.repo.Put(ctx, t)
}

func (f *fakeLifecycle) Complete(ctx context.Context, id, result string, sources []task.Source) (*task.Task, error) {
	f.completed = id
	t, err := f.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Status = task.StatusCompleted
	if err := f.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func newTestRouter(t *testing.T) (chi.Router, task.Repository, *fakeLifecycle) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := taskrepo.NewYAMLRepository(store)
	lifecycle := &fakeLifecycle{repo: repo}
	srv := task.NewServer(repo, lifecycle)

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	r.Post("/agent", srv.Submit)
	r.Get("/tasks", srv.List)
	r.Get("/tasks/{taskID}", srv.Get)
	r.Post("/tasks/{taskID}/complete", srv.Complete)
	return r, repo, lifecycle
}

func TestServerSubmit(t *testing.T) {
	r, _, lifecycle := newTestRouter(t)

	body := `{"text": "check the weather", "client_time": "2026-01-05T09:00:00Z", "dismissed_intents": ["email"]}`
	req := httptest.NewRequest(http.MethodPost, "/agent", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Task *task.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "01SUBMITTED", resp.Task.ID)
	assert.Equal(t, task.StatusPlanned, resp.Task.Status)

	require.NotNil(t, lifecycle.submitted)
	assert.Equal(t, "check the weather", lifecycle.submitted.Text)
	assert.Equal(t, []string{"email"}, lifecycle.submitted.DismissedIntents)
}

func TestServerSubmitRejectsEmptyText(t *testing.T) {
	r, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/agent", strings.NewReader(`{"text": "   "}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text is required")
}

func TestServerGetNotFound(t *testing.T) {
	r, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerListFiltersByStatus(t *testing.T) {
	r, repo, _ := newTestRouter(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.Put(ctx, &task.Task{ID: "01A", Status: task.StatusPlanned, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, repo.Put(ctx, &task.Task{ID: "01B", Status: task.StatusCompleted, CreatedAt: now, UpdatedAt: now}))

	req := httptest.NewRequest(http.MethodGet, "/tasks?status=completed", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tasks []*task.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "01B", resp.Tasks[0].ID)
}

func TestServerListEmpty(t *testing.T) {
	r, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tasks": []}`, rec.Body.String())
}

func TestServerCompleteWithoutBody(t *testing.T) {
	r, repo, lifecycle := newTestRouter(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.Put(ctx, &task.Task{ID: "01A", Status: task.StatusWaitingForInternet, CreatedAt: now, UpdatedAt: now}))

	req := httptest.NewRequest(http.MethodPost, "/tasks/01A/complete", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "01A", lifecycle.completed)

	got, err := repo.Get(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
}
