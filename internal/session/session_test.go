package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/sellertest"
)

func newManager() *Manager {
	return NewManager(seller.New("http://seller.invalid", ""), Options{Secret: []byte("secret"), TTL: time.Hour})
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestCreateAndResolve(t *testing.T) {
	m := newManager()
	s, c, err := m.Create("upstream-token")
	require.NoError(t, err)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "upstream-token", s.Client.Token())

	got, err := m.FromRequest(requestWith(c))
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestMissingOrForgedCookie(t *testing.T) {
	m := newManager()

	_, err := m.FromRequest(requestWith(nil))
	require.ErrorIs(t, err, ErrNoSession)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Token:            "t",
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = m.FromRequest(requestWith(&http.Cookie{Name: CookieName, Value: forged}))
	require.ErrorIs(t, err, ErrNoSession)
}

func TestExpiredCookieIsRejected(t *testing.T) {
	m := newManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	_, c, err := m.Create("tok")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.FromRequest(requestWith(c))
	require.ErrorIs(t, err, ErrNoSession)
}

func TestCookieRestoresSessionAfterRestart(t *testing.T) {
	s, c, err := newManager().Create("tok")
	require.NoError(t, err)

	restarted := newManager()
	restored, err := restarted.FromRequest(requestWith(c))
	require.NoError(t, err)
	assert.Equal(t, s.ID, restored.ID)
	assert.NotSame(t, s, restored)
	assert.Equal(t, "tok", restored.Client.Token())
	assert.Equal(t, 1, restarted.Len())
}

func TestDestroyedSessionCookieIsRefused(t *testing.T) {
	m := newManager()
	s, c, err := m.Create("tok")
	require.NoError(t, err)
	m.Destroy(s.ID)
	assert.Zero(t, m.Len())
	assert.Equal(t, 1, m.Revoked())

	_, err = m.FromRequest(requestWith(c))
	require.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, m.Len())

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	m.Sweep()
	assert.Zero(t, m.Revoked())
}

func TestBalanceChangeIsAnnounced(t *testing.T) {
	f := sellertest.New(t)
	m := NewManager(seller.New(f.URL, ""), Options{Secret: []byte("secret")})
	s, _, err := m.Create(sellertest.DefaultToken)
	require.NoError(t, err)

	_, err = s.Profile.Get(context.Background())
	require.NoError(t, err)
	_, err = s.Profile.Refresh(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Notes.Len(), "same balance")

	f.SetBalance(decimal.NewFromInt(42))
	_, err = s.Profile.Refresh(context.Background())
	require.NoError(t, err)
	notes := s.Notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "balance updated: 42.00 USD", notes[0].Message)
}

func TestSweepAndRun(t *testing.T) {
	m := newManager()
	_, _, err := m.Create("a")
	require.NoError(t, err)
	m.ttl = time.Millisecond
	_, _, err = m.Create("b")
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	m.now = func() time.Time { return time.Now().Add(time.Minute) }
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, m.Run(ctx, time.Millisecond))
}

func TestClearCookie(t *testing.T) {
	c := newManager().ClearCookie()
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}
