// Package session keeps the in-memory state of every signed-in seller and
// the signed cookie that ties a browser to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/catalog"
	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/notify"
	"github.com/punchamoorthee/sellerdash/internal/offer"
	"github.com/punchamoorthee/sellerdash/internal/profile"
	"github.com/punchamoorthee/sellerdash/internal/recipient"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

const CookieName = "seller_session"

var ErrNoSession = errors.New("no valid session cookie")

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dashboard_active_sessions",
	Help: "Seller sessions currently held in memory",
})

// Session is everything one signed-in seller works with. The parts share
// the session's resolver and profile cache.
type Session struct {
	ID        string
	Client    *seller.Client
	Profile   *profile.Cache
	Recipient *recipient.Resolver
	Tokens    *transfer.TokenWorkflow
	Boosters  *transfer.BoosterWorkflow
	Offers    *offer.Purchase
	Catalog   *catalog.Browser
	Order     *catalog.Form
	Notes     *notify.Center

	expires time.Time
}

func newSession(id string, client *seller.Client, logger *zap.Logger) *Session {
	logger = logger.With(zap.String("session", id))
	s := &Session{
		ID:        id,
		Client:    client,
		Profile:   profile.New(client, logger),
		Recipient: recipient.New(client, logger),
		Notes:     notify.New(notify.DefaultCapacity, logger),
	}
	deps := transfer.Deps{
		Recipients: s.Recipient,
		Profile:    s.Profile,
		Notify:     s.Notes,
		Logger:     logger,
	}
	s.Tokens = transfer.NewTokens(client, client, deps)
	s.Boosters = transfer.NewBoosters(client, client, deps)
	s.Offers = offer.New(client, deps)
	s.Catalog = catalog.NewBrowser(client, catalog.DefaultTTL, logger)
	s.Order = catalog.NewForm(s.Catalog, client, s.Profile, s.Notes, logger)
	watchBalance(s.Profile, s.Notes)
	return s
}

// watchBalance tells the seller when a refetched profile shows a new
// balance. The first profile of a session is not announced.
func watchBalance(p *profile.Cache, notes *notify.Center) {
	var (
		mu   sync.Mutex
		last *domain.Wallet
	)
	p.Subscribe(func(sp *domain.SellerProfile) {
		mu.Lock()
		prev := last
		w := sp.Wallet
		last = &w
		mu.Unlock()
		if prev != nil && !prev.Balance.Equal(w.Balance) {
			notes.Info("balance updated: " + domain.Price{Amount: w.Balance, Currency: w.Currency}.String())
		}
	})
}

type claims struct {
	Token string `json:"tok"`
	jwt.RegisteredClaims
}

type Options struct {
	Secret []byte
	TTL    time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
	Logger *zap.Logger
}

// Manager issues session cookies and owns the session registry. A valid
// cookie whose session is gone (for example after a restart) gets a fresh
// session built from the token it carries, unless the session was
// destroyed. Destroyed session ids stay revoked until their cookie expires.
type Manager struct {
	base   *seller.Client
	secret []byte
	ttl    time.Duration
	secure bool
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	revoked  map[string]time.Time
}

func NewManager(base *seller.Client, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Manager{
		base:     base,
		secret:   opts.Secret,
		ttl:      opts.TTL,
		secure:   opts.Secure,
		logger:   opts.Logger,
		now:      time.Now,
		sessions: map[string]*Session{},
		revoked:  map[string]time.Time{},
	}
}

// Create starts a session for an upstream auth token and returns the
// cookie that identifies it.
func (m *Manager) Create(token string) (*Session, *http.Cookie, error) {
	id := uuid.NewString()
	now := m.now()
	expires := now.Add(m.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Token: token,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(m.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("sign session cookie: %w", err)
	}

	s, err := m.register(id, token, expires)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Info("session created", zap.String("session", id))
	return s, m.cookie(signed, expires), nil
}

// FromRequest resolves the session named by the request cookie.
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var cl claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err = parser.ParseWithClaims(c.Value, &cl, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || cl.ID == "" || cl.Token == "" || cl.ExpiresAt == nil {
		return nil, ErrNoSession
	}
	if !cl.ExpiresAt.After(m.now()) {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	s, ok := m.sessions[cl.ID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}
	s, err = m.register(cl.ID, cl.Token, cl.ExpiresAt.Time)
	if err != nil {
		return nil, err
	}
	m.logger.Info("session restored from cookie", zap.String("session", cl.ID))
	return s, nil
}

func (m *Manager) register(id, token string, expires time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if _, ok := m.revoked[id]; ok {
		return nil, ErrNoSession
	}
	s := newSession(id, m.base.WithToken(token), m.logger)
	s.expires = expires
	m.sessions[id] = s
	activeSessions.Set(float64(len(m.sessions)))
	return s, nil
}

// Destroy drops a session, typically on logout or when the upstream
// rejects its token. Its cookie is refused from then on.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	if ok {
		m.revoked[id] = s.expires
	}
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	if ok {
		m.logger.Info("session destroyed", zap.String("session", id))
	}
}

// Revoked reports how many destroyed sessions still have a live cookie.
func (m *Manager) Revoked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ClearCookie returns a cookie that removes the session cookie.
func (m *Manager) ClearCookie() *http.Cookie {
	c := m.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	return c
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Sweep drops expired sessions and reports how many were removed. Revoked
// ids whose cookie has expired are forgotten too.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if !s.expires.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	for id, expires := range m.revoked {
		if !expires.After(now) {
			delete(m.revoked, id)
		}
	}
	activeSessions.Set(float64(len(m.sessions)))
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}
