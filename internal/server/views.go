package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/engine"
)

func (s *Server) handleRadar(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.Radar(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.Ideas(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.PersonReport(r.Context(), auth.OwnerFrom(r.Context()), chi.URLParam(r, "personID"))
	if errors.Is(err, engine.ErrPersonNotFound) {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
