package task

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/valethq/valet/pkg/cerr"
)

// SubmitRequest is the payload of a new agent request.
type SubmitRequest struct {
	Text             string   `json:"text"`
	ClientTime       string   `json:"client_time,omitempty"`
	ExtractedTime    string   `json:"extracted_time,omitempty"`
	DismissedIntents []string `json:"dismissed_intents,omitempty"`
}

// CompleteRequest is the payload of the external completion path.
type CompleteRequest struct {
	Result  string   `json:"result,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

// Lifecycle is the engine surface the HTTP layer dispatches into.
type Lifecycle interface {
	Submit(ctx context.Context, req *SubmitRequest) (*Task, error)
	Complete(ctx context.Context, id, result string, sources []Source) (*Task, error)
}

type Server struct {
	repo      Repository
	lifecycle Lifecycle
}

func NewServer(repo Repository, lifecycle Lifecycle) *Server {
	return &Server{repo: repo, lifecycle: lifecycle}
}

type taskResponse struct {
	Task *Task `json:"task"`
}

type listResponse struct {
	Tasks []*Task `json:"tasks"`
}

func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid request payload", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "text is required", nil)
		return
	}
	t, err := s.lifecycle.Submit(r.Context(), &req)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), &taskResponse{Task: t})
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	t, err := s.repo.Get(r.Context(), id)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), &taskResponse{Task: t})
}

func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []*Task
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		tasks, err = s.repo.ListByStatus(r.Context(), Status(status))
	} else {
		tasks, err = s.repo.List(r.Context())
	}
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	cerr.SetJSONResponse(r.Context(), &listResponse{Tasks: tasks})
}

func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	var req CompleteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid request payload", err)
			return
		}
	}
	t, err := s.lifecycle.Complete(r.Context(), id, req.Result, req.Sources)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), &taskResponse{Task: t})
}
