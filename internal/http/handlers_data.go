package http

import (
	"bytes"
	"fmt"
	"net/http"

	"teamfee/internal/log"
	"teamfee/internal/repository"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Export(&buf); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", repository.ExportFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport replaces all teams and people with the posted document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, maxImportBody)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	doc, err := s.svc.Import(r.Context(), body)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	NewJSONResponse().Body(map[string]int{
		"teams":  len(doc.Teams),
		"people": len(doc.People),
	}).Write(w)
}
