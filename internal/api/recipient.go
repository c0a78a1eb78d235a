package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/recipient"
	"github.com/punchamoorthee/sellerdash/internal/session"
)

func (h *Handler) GetRecipientHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	respondWithJSON(w, http.StatusOK, s.Recipient.Snapshot())
}

func (h *Handler) ClearRecipientHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Recipient.Clear()
	respondWithJSON(w, http.StatusOK, s.Recipient.Snapshot())
}

func (h *Handler) SetModeHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := recipient.ParseMode(req.Mode)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	s.Recipient.SetMode(mode)
	respondWithJSON(w, http.StatusOK, s.Recipient.Snapshot())
}

func (h *Handler) EditNameHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.lookupResult(w, r, s, s.Recipient.EditName(r.Context(), req.Name))
}

func (h *Handler) EditIDHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.lookupResult(w, r, s, s.Recipient.EditID(r.Context(), req.ID))
}

// lookupResult answers with the resolver state. Upstream failures are
// part of that state; only session and input errors become error responses.
func (h *Handler) lookupResult(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	if err != nil && !inline(err) {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Recipient.Snapshot())
}

func (h *Handler) SelectRecipientHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		ID domain.ID `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Recipient.Select(req.ID); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Recipient.Snapshot())
}

// PlayerProfileHandler serves the player details card. An unknown player
// is a null profile, not an error.
func (h *Handler) PlayerProfileHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	p, err := s.Catalog.PlayerProfile(r.Context(), domain.ID(mux.Vars(r)["id"]))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"profile": p})
}
