package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/session"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

// Handler serves the dashboard API. Every route below /api/v1 except the
// OTP exchange needs a session cookie.
type Handler struct {
	sessions *session.Manager
	auth     *seller.Client
	logger   *zap.Logger
}

func NewHandler(sessions *session.Manager, auth *seller.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, auth: auth, logger: logger}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not Found")
	})
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/auth/otp", h.SendOTPHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/verify", h.VerifyOTPHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", h.LogoutHandler).Methods(http.MethodPost)

	v1.HandleFunc("/profile", h.withSession(h.ProfileHandler)).Methods(http.MethodGet)

	v1.HandleFunc("/recipient", h.withSession(h.GetRecipientHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/recipient", h.withSession(h.ClearRecipientHandler)).Methods(http.MethodDelete)
	v1.HandleFunc("/recipient/mode", h.withSession(h.SetModeHandler)).Methods(http.MethodPut)
	v1.HandleFunc("/recipient/name", h.withSession(h.EditNameHandler)).Methods(http.MethodPut)
	v1.HandleFunc("/recipient/id", h.withSession(h.EditIDHandler)).Methods(http.MethodPut)
	v1.HandleFunc("/recipient/select", h.withSession(h.SelectRecipientHandler)).Methods(http.MethodPost)

	v1.HandleFunc("/players/{id}/profile", h.withSession(h.PlayerProfileHandler)).Methods(http.MethodGet)

	tokens := v1.PathPrefix("/transfers/tokens").Subrouter()
	tokens.HandleFunc("", h.withSession(h.GetTokensHandler)).Methods(http.MethodGet)
	tokens.HandleFunc("/amount", h.withSession(h.SetTokenAmountHandler)).Methods(http.MethodPut)
	workflowRoutes(h, tokens, pickTokens, tokenView)

	boosters := v1.PathPrefix("/transfers/boosters").Subrouter()
	boosters.HandleFunc("", h.withSession(h.GetBoostersHandler)).Methods(http.MethodGet)
	boosters.HandleFunc("/color", h.withSession(h.SetBoosterColorHandler)).Methods(http.MethodPut)
	boosters.HandleFunc("/counts/{color}", h.withSession(h.SetBoosterCountHandler)).Methods(http.MethodPut)
	boosters.HandleFunc("/counts/{color}/adjust", h.withSession(h.AdjustBoosterCountHandler)).Methods(http.MethodPost)
	workflowRoutes(h, boosters, pickBoosters, boosterView)

	v1.HandleFunc("/offers", h.withSession(h.ListOffersHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/offers/select", h.withSession(h.SelectOfferHandler)).Methods(http.MethodPost)
	v1.HandleFunc("/offers/confirm", h.withSession(h.ConfirmOfferHandler)).Methods(http.MethodPost)
	v1.HandleFunc("/offers/cancel", h.withSession(h.CancelOfferHandler)).Methods(http.MethodPost)

	v1.HandleFunc("/catalog/categories", h.withSession(h.CategoriesHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/catalog/categories/{id}/products", h.withSession(h.ProductsHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/catalog/products/{id}/variants", h.withSession(h.VariantsHandler)).Methods(http.MethodGet)

	form := v1.PathPrefix("/orders/form").Subrouter()
	form.HandleFunc("", h.withSession(h.GetOrderFormHandler)).Methods(http.MethodGet)
	form.HandleFunc("/variant", h.withSession(h.ChooseVariantHandler)).Methods(http.MethodPut)
	form.HandleFunc("/quantity", h.withSession(h.SetOrderQuantityHandler)).Methods(http.MethodPut)
	form.HandleFunc("/fields", h.withSession(h.SetOrderFieldsHandler)).Methods(http.MethodPut)
	form.HandleFunc("/submit", h.withSession(h.SubmitOrderHandler)).Methods(http.MethodPost)
	form.HandleFunc("/cancel", h.withSession(h.CancelOrderHandler)).Methods(http.MethodPost)
	v1.HandleFunc("/orders", h.withSession(h.OrdersHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{id}", h.withSession(h.OrderHandler)).Methods(http.MethodGet)

	v1.HandleFunc("/history/tokens", h.withSession(h.TokenHistoryHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/history/boosters", h.withSession(h.BoosterHistoryHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/history/balance", h.withSession(h.BalanceHistoryHandler)).Methods(http.MethodGet)

	v1.HandleFunc("/notifications", h.withSession(h.NotificationsHandler)).Methods(http.MethodGet)
	return r
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *session.Session)

func (h *Handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.sessions.FromRequest(r)
		if err != nil {
			h.fail(w, r, nil, err)
			return
		}
		next(w, r, s)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics labeled by route template and logs
// every request.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpoint))

		next.ServeHTTP(rec, r)

		timer.ObserveDuration()
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: "Malformed JSON body", Kind: "bad_request"})
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorBody{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
