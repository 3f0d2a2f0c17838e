package http

import (
	"net/http"
	"strings"

	"teamfee/internal/core"
	"teamfee/internal/log"
)

type personForm struct {
	TeamID   string
	Name     string
	Billable float64
	Fee      *float64
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people := s.svc.People(strings.TrimSpace(r.URL.Query().Get("teamId")))
	if people == nil {
		people = []core.Person{}
	}
	NewJSONResponse().Body(people).Write(w)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	person, ok := s.svc.Person(r.PathValue("id"))
	if !ok {
		s.fail(w, r, log.OpRead, core.ErrPersonNotFound)
		return
	}
	NewJSONResponse().Body(person).Write(w)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	form, err := parsePersonForm(r)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	person, err := s.svc.CreatePerson(r.Context(), form.TeamID, form.Name, form.Billable, form.Fee)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(person).Write(w)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	form, err := parsePersonForm(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	person, err := s.svc.UpdatePerson(r.Context(), r.PathValue("id"), form.Name, form.Billable, form.Fee)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(person).Write(w)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePerson(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// parsePersonForm reads a person form. A blank or non-numeric billable
// amount is 0, while a non-numeric fee is rejected. The team id is ignored
// on update.
func parsePersonForm(r *http.Request) (personForm, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return personForm{}, err
	}
	fee, err := p.OptionalNumber("fee", core.ErrInvalidFee)
	if err != nil {
		return personForm{}, err
	}
	return personForm{
		TeamID:   p.Get("teamId"),
		Name:     p.Get("name"),
		Billable: p.LenientNumber("billable"),
		Fee:      fee,
	}, nil
}
