package api

import (
	"net/http"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/session"
)

func (h *Handler) ListOffersHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	page, err := s.Offers.List(r.Context(), queryInt(r, "page"))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) SelectOfferHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		ExternalOfferID domain.ID `json:"external_offer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := s.Offers.Select(req.ExternalOfferID); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Offers.Snapshot())
}

func (h *Handler) ConfirmOfferHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	receipt, err := s.Offers.Confirm(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message":  receipt.Message,
		"purchase": s.Offers.Snapshot(),
	})
}

func (h *Handler) CancelOfferHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Offers.Cancel(); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Offers.Snapshot())
}
