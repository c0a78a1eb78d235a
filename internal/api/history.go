package api

import (
	"net/http"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/session"
)

func (h *Handler) TokenHistoryHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	q := r.URL.Query()
	page, err := s.Client.TokenTransfers(r.Context(), domain.TokenTransferFilter{
		Page: queryInt(r, "page"),
		From: q.Get("from"),
		To:   q.Get("to"),
		On:   q.Get("on"),
		Q:    q.Get("q"),
	})
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) BoosterHistoryHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	q := r.URL.Query()
	page, err := s.Client.Boosters(r.Context(), domain.BoosterFilter{
		Page: queryInt(r, "page"),
		From: q.Get("from"),
		To:   q.Get("to"),
	})
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) BalanceHistoryHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	page, err := s.Client.BalanceHistory(r.Context(), queryInt(r, "page"))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}
