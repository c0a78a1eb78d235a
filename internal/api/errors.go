package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/session"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

const loginPath = "/login"

// fail writes err as a JSON error. Session errors also end the session s
// (when known) and clear the cookie so the front-end re-authenticates.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	var (
		ve *domain.ValidationError
		ae *seller.APIError
		te *seller.TransportError
	)
	switch {
	case errors.As(err, &ve):
		respondWithJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Message, Kind: "validation", Field: ve.Field})
	case errors.Is(err, seller.ErrSession), errors.Is(err, session.ErrNoSession):
		if s != nil {
			h.sessions.Destroy(s.ID)
			h.logger.Info("session invalidated by upstream", zap.String("session", s.ID))
		}
		http.SetCookie(w, h.sessions.ClearCookie())
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: seller.UserMessage(seller.ErrSession), Kind: "session", Redirect: loginPath})
	case errors.Is(err, transfer.ErrBusy):
		respondWithJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "busy"})
	case errors.Is(err, transfer.ErrStaleQuote):
		respondWithJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "stale_quote"})
	case errors.Is(err, transfer.ErrIllegalTransition):
		respondWithJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "illegal_transition"})
	case errors.Is(err, transfer.ErrInsufficientBalance):
		respondWithJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: "insufficient_balance"})
	case errors.As(err, &ae) && ae.Status >= 500:
		respondWithJSON(w, http.StatusServiceUnavailable, errorBody{Error: ae.Message, Kind: "upstream"})
	case errors.As(err, &ae):
		respondWithJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ae.Message, Kind: "business"})
	case errors.As(err, &te):
		respondWithJSON(w, http.StatusServiceUnavailable, errorBody{Error: seller.UserMessage(err), Kind: "transport"})
	default:
		h.logger.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		respondWithJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Kind: "internal"})
	}
}

// inline reports whether err belongs in the component's own state rather
// than in an error response.
func inline(err error) bool {
	var (
		ae *seller.APIError
		te *seller.TransportError
	)
	return errors.As(err, &ae) || errors.As(err, &te)
}
