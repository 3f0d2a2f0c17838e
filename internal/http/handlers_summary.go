package http

import (
	"net/http"

	"teamfee/internal/core"
	"teamfee/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if view, ok := s.summaryCache.Get(s.svc.Revision()); ok {
		NewJSONResponse().Header("X-Cache", "hit").Body(view).Write(w)
		return
	}
	summary, rev := s.svc.Summary()
	view := newSummaryView(summary, rev)
	s.summaryCache.Set(rev, view)
	NewJSONResponse().Header("X-Cache", "miss").Body(view).Write(w)
}

type settingsView struct {
	GlobalFee float64 `json:"globalFee"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(settingsView{GlobalFee: s.svc.GlobalFee()}).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	fee, err := p.OptionalNumber("globalFee", core.ErrInvalidFee)
	if err == nil && fee == nil {
		err = core.ErrInvalidFee
	}
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.SetGlobalFee(r.Context(), *fee); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(settingsView{GlobalFee: *fee}).Write(w)
}
