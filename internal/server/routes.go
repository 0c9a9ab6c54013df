package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/store"
)

const (
	// recentInteractions is the default size of the history list.
	recentInteractions = 200
	maxInteractions    = 1000
	// personHistory is how many interactions the person detail includes.
	personHistory = 50
)

var validate = validator.New()

type createPersonRequest struct {
	Label string `json:"label" validate:"required,max=200"`
	Note  string `json:"note" validate:"max=2000"`
}

type routineRequest struct {
	Days *int `json:"days" validate:"omitempty,min=1,max=365"`
}

type addInteractionRequest struct {
	PersonID   string  `json:"person_id" validate:"required"`
	Kind       string  `json:"kind" validate:"required,oneof=chat call meet note"`
	Mood       *int    `json:"mood" validate:"omitempty,min=-3,max=3"`
	Note       *string `json:"note"`
	HappenedAt string  `json:"happened_at"`
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	raws, err := s.store.ListPeople(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	people, _ := engine.NormalizePeople(raws)

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(people),
		"people": people,
	})
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label required")
		return
	}

	raw, err := s.store.CreatePerson(r.Context(), auth.OwnerFrom(r.Context()), req.Label, strings.TrimSpace(req.Note))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	people, rej := engine.NormalizePeople([]engine.RawPerson{*raw})
	if len(rej) > 0 {
		s.internalError(w, r, errors.New(rej[0].Reason))
		return
	}
	writeJSON(w, http.StatusCreated, people[0])
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFrom(r.Context())
	personID := chi.URLParam(r, "personID")

	raw, err := s.store.GetPerson(r.Context(), owner, personID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if raw == nil {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	people, _ := engine.NormalizePeople([]engine.RawPerson{*raw})
	if len(people) == 0 {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}

	rawIxs, err := s.store.ListPersonInteractions(r.Context(), owner, personID, personHistory)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	ixs, _ := engine.NormalizeInteractions(rawIxs)

	writeJSON(w, http.StatusOK, map[string]any{
		"person":       people[0],
		"interactions": ixs,
	})
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeletePerson(r.Context(), auth.OwnerFrom(r.Context()), chi.URLParam(r, "personID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.store.SetRoutine(r.Context(), auth.OwnerFrom(r.Context()), chi.URLParam(r, "personID"), req.Days)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "routine_days": req.Days})
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	limit := recentInteractions
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxInteractions)
		}
	}

	raws, err := s.store.ListInteractions(r.Context(), auth.OwnerFrom(r.Context()), time.Time{}, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	ixs, _ := engine.NormalizeInteractions(raws)

	writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(ixs),
		"interactions": ixs,
	})
}

func (s *Server) handleAddInteraction(w http.ResponseWriter, r *http.Request) {
	var req addInteractionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var at time.Time
	if req.HappenedAt != "" {
		t, err := engine.ParseTimestamp(req.HappenedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "happened_at must be an RFC 3339 timestamp")
			return
		}
		at = t
	}
	if req.Note != nil && strings.TrimSpace(*req.Note) == "" {
		req.Note = nil
	}

	raw, err := s.store.AddInteraction(r.Context(), store.NewInteraction{
		OwnerID:    auth.OwnerFrom(r.Context()),
		PersonID:   req.PersonID,
		HappenedAt: at,
		Kind:       engine.Kind(req.Kind),
		Mood:       req.Mood,
		Note:       req.Note,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	metrics.InteractionsLogged.WithLabelValues(req.Kind).Inc()

	ixs, rej := engine.NormalizeInteractions([]engine.RawInteraction{*raw})
	if len(rej) > 0 {
		s.internalError(w, r, errors.New(rej[0].Reason))
		return
	}
	writeJSON(w, http.StatusCreated, ixs[0])
}
