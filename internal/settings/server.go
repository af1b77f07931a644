package settings

import (
	"encoding/json"
	"net/http"

	"github.com/valethq/valet/pkg/cerr"
)

// Server exposes the toggle map over HTTP. Responses are serialized by
// the JSON response middleware.
type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

type togglesResponse struct {
	Settings map[string]bool `json:"settings"`
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), &togglesResponse{Settings: s.service.Toggles()})
}

func (s *Server) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid settings payload", err)
		return
	}
	if err := s.service.Update(req); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.Internal, "failed to persist settings", err)
		return
	}
	cerr.SetJSONResponse(r.Context(), &togglesResponse{Settings: s.service.Toggles()})
}
