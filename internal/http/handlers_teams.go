package http

import (
	"net/http"

	"teamfee/internal/core"
	"teamfee/internal/log"
)

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams := s.svc.Teams()
	if teams == nil {
		teams = []core.Team{}
	}
	NewJSONResponse().Body(teams).Write(w)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, ok := s.svc.Team(r.PathValue("id"))
	if !ok {
		s.fail(w, r, log.OpRead, core.ErrTeamNotFound)
		return
	}
	NewJSONResponse().Body(team).Write(w)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	name, fee, err := parseTeamForm(r)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	team, err := s.svc.CreateTeam(r.Context(), name, fee)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(team).Write(w)
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	name, fee, err := parseTeamForm(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	team, err := s.svc.UpdateTeam(r.Context(), r.PathValue("id"), name, fee)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(team).Write(w)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := s.svc.DeleteTeam(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"id":            id,
		"removedPeople": removed,
	}).Write(w)
}

// parseTeamForm reads the name and optional fee of a team form.
func parseTeamForm(r *http.Request) (string, *float64, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", nil, err
	}
	fee, err := p.OptionalNumber("fee", core.ErrInvalidFee)
	if err != nil {
		return "", nil, err
	}
	return p.Get("name"), fee, nil
}
