package api

import (
	"net/http"
	"strings"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/session"
)

type otpRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (h *Handler) SendOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		h.fail(w, r, nil, domain.Invalid("phone", "enter your phone number"))
		return
	}
	receipt, err := h.auth.SendOTP(r.Context(), phone)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	respondWithJSON(w, http.StatusOK, receipt)
}

// VerifyOTPHandler exchanges the code for an upstream token and starts a
// session around it.
func (h *Handler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	phone, otp := strings.TrimSpace(req.Phone), strings.TrimSpace(req.OTP)
	if phone == "" {
		h.fail(w, r, nil, domain.Invalid("phone", "enter your phone number"))
		return
	}
	if otp == "" {
		h.fail(w, r, nil, domain.Invalid("otp", "enter the verification code"))
		return
	}

	token, err := h.auth.VerifyOTP(r.Context(), phone, otp)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	s, cookie, err := h.sessions.Create(token)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	http.SetCookie(w, cookie)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": s.ID})
}

// LogoutHandler forgets the session locally. The upstream token is not
// revoked.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if s, err := h.sessions.FromRequest(r); err == nil {
		h.sessions.Destroy(s.ID)
	}
	http.SetCookie(w, h.sessions.ClearCookie())
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ProfileHandler serves the cached profile; ?refresh=1 refetches it.
func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	get := s.Profile.Get
	if r.URL.Query().Get("refresh") == "1" {
		get = s.Profile.Refresh
	}
	p, err := get(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) NotificationsHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	respondWithJSON(w, http.StatusOK, map[string]any{"notifications": s.Notes.Drain()})
}
