package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/session"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

type tokensResponse struct {
	transfer.Snapshot[int64]
	Presets []int64 `json:"presets"`
}

type boostersResponse struct {
	transfer.Snapshot[transfer.BoosterSelection]
	Colors []domain.BoosterColor `json:"colors"`
}

func pickTokens(s *session.Session) *transfer.TokenWorkflow     { return s.Tokens }
func pickBoosters(s *session.Session) *transfer.BoosterWorkflow { return s.Boosters }

func tokenView(s transfer.Snapshot[int64]) any {
	return tokensResponse{Snapshot: s, Presets: domain.TokenPresets}
}

func boosterView(s transfer.Snapshot[transfer.BoosterSelection]) any {
	return boostersResponse{Snapshot: s, Colors: domain.BoosterColors}
}

// workflowRoutes registers confirm, submit and cancel for one product.
func workflowRoutes[A comparable](
	h *Handler,
	sub *mux.Router,
	pick func(*session.Session) *transfer.Workflow[A],
	view func(transfer.Snapshot[A]) any,
) {
	sub.HandleFunc("/confirm", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		wf := pick(s)
		if _, err := wf.Confirm(r.Context()); err != nil {
			h.fail(w, r, s, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view(wf.Snapshot()))
	})).Methods(http.MethodPost)

	sub.HandleFunc("/submit", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		wf := pick(s)
		receipt, err := wf.Submit(r.Context())
		if err != nil {
			h.fail(w, r, s, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{
			"message":  receipt.Message,
			"transfer": view(wf.Snapshot()),
		})
	})).Methods(http.MethodPost)

	sub.HandleFunc("/cancel", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		wf := pick(s)
		if err := wf.Cancel(); err != nil {
			h.fail(w, r, s, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view(wf.Snapshot()))
	})).Methods(http.MethodPost)
}

func updateAndRespond[A comparable](h *Handler, w http.ResponseWriter, r *http.Request, s *session.Session,
	wf *transfer.Workflow[A], view func(transfer.Snapshot[A]) any, fn func(A) (A, error)) {
	if err := wf.Update(fn); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view(wf.Snapshot()))
}

// The token and booster snapshots read the cached price list for their
// preview, so GET warms the cache.
func (h *Handler) warmProfile(r *http.Request, s *session.Session) error {
	if _, ok := s.Profile.Peek(); ok {
		return nil
	}
	_, err := s.Profile.Get(r.Context())
	return err
}

func (h *Handler) GetTokensHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := h.warmProfile(r, s); err != nil && !inline(err) {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tokenView(s.Tokens.Snapshot()))
}

func (h *Handler) SetTokenAmountHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	updateAndRespond(h, w, r, s, s.Tokens, tokenView, func(int64) (int64, error) {
		if req.Amount < 0 {
			return 0, domain.Invalid("amount", "amount cannot be negative")
		}
		return req.Amount, nil
	})
}

func (h *Handler) GetBoostersHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := h.warmProfile(r, s); err != nil && !inline(err) {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, boosterView(s.Boosters.Snapshot()))
}

func (h *Handler) SetBoosterColorHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		Color string `json:"color"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	color, err := parseColor(req.Color)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	updateAndRespond(h, w, r, s, s.Boosters, boosterView, transfer.SelectColor(color))
}

func (h *Handler) SetBoosterCountHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	color, err := parseColor(mux.Vars(r)["color"])
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	var req struct {
		Count int64 `json:"count"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	updateAndRespond(h, w, r, s, s.Boosters, boosterView, transfer.SetCount(color, req.Count))
}

func (h *Handler) AdjustBoosterCountHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	color, err := parseColor(mux.Vars(r)["color"])
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	var req struct {
		Delta int64 `json:"delta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	updateAndRespond(h, w, r, s, s.Boosters, boosterView, transfer.AdjustCount(color, req.Delta))
}

func parseColor(raw string) (domain.BoosterColor, error) {
	c, err := domain.ParseBoosterColor(raw)
	if err != nil {
		return "", domain.Invalid("color", "booster color must be red, blue or black")
	}
	return c, nil
}
