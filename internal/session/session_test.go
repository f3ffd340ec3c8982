package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/cookie"
	"github.com/dukerupert/atelier/internal/pricing"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

// storeContract runs the same behaviour checks against every Store.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := &Session{ID: "s1", Theme: ThemeDark}
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, got.Theme)
	assert.False(t, got.CreatedAt.IsZero())

	updated, err := store.Update(ctx, "s1", func(s *Session) error {
		s.SetTokens("access", "refresh", "lan")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Authenticated())

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)

	boom := errors.New("boom")
	_, err = store.Update(ctx, "s1", func(s *Session) error {
		s.AccessToken = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, _ = store.Get(ctx, "s1")
	assert.Equal(t, "access", got.AccessToken, "failed update is not written")

	_, err = store.Update(ctx, "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	storeContract(t, store)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), &Session{ID: "a"}))
	now = now.Add(2 * time.Minute)

	_, err := store.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(context.Background(), &Session{ID: "b"}))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Save(context.Background(), &Session{ID: "a"}))
	assert.Equal(t, time.Hour, mr.TTL("session:a"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSession_LogoutKeepsTheme(t *testing.T) {
	s := &Session{Theme: ThemeDark}
	s.SetTokens("a", "r", "lan")
	s.IsAdmin = true
	s.SetBuyNow([]pricing.LineItem{{VariantID: 1, Quantity: 1}}, time.Now())
	s.Checkout = []byte(`{"stage":"reviewing_cart"}`)

	s.ClearForLogout()

	assert.False(t, s.Authenticated())
	assert.False(t, s.IsAdmin)
	assert.Nil(t, s.BuyNow)
	assert.Nil(t, s.Checkout)
	assert.Equal(t, ThemeDark, s.Theme)
}

func TestSession_ActiveBuyNow(t *testing.T) {
	now := time.Now()
	s := &Session{}
	_, ok := s.ActiveBuyNow(now, time.Minute)
	assert.False(t, ok)

	s.SetBuyNow([]pricing.LineItem{{VariantID: 1, Quantity: 2}}, now)
	snap, ok := s.ActiveBuyNow(now.Add(30*time.Second), time.Minute)
	require.True(t, ok)
	assert.Equal(t, 2, snap.Items[0].Quantity)

	_, ok = s.ActiveBuyNow(now.Add(2*time.Minute), time.Minute)
	assert.False(t, ok)
}

func TestSession_FlashIsOneShot(t *testing.T) {
	s := &Session{}
	s.SetFlash(FlashSuccess, "Added to cart")
	f := s.TakeFlash()
	require.NotNil(t, f)
	assert.Equal(t, "Added to cart", f.Message)
	assert.Nil(t, s.TakeFlash())
}

func TestSession_ToggleTheme(t *testing.T) {
	s := &Session{}
	s.ToggleTheme()
	assert.True(t, s.DarkMode())
	s.ToggleTheme()
	assert.Equal(t, ThemeLight, s.Theme)
}

func newManager(store Store) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, cookie.NewConfig("", false), "sid", time.Hour, logger)
}

func TestManager_LoadCreatesSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newManager(store)

	rec := httptest.NewRecorder()
	s, err := m.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, s.ID, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: s.ID})
	rec = httptest.NewRecorder()
	again, err := m.Load(rec, req)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.Empty(t, rec.Result().Cookies(), "existing session does not reset the cookie")
}

func TestManager_LoadReplacesStaleCookie(t *testing.T) {
	m := newManager(NewMemoryStore(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "gone"})

	s, err := m.Load(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "gone", s.ID)
}

func TestManager_LoginRotatesID(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newManager(store)
	ctx := context.Background()

	old := &Session{ID: "pre", Theme: ThemeDark}
	old.SetBuyNow([]pricing.LineItem{{VariantID: 9, Quantity: 1}}, time.Now())
	require.NoError(t, store.Save(ctx, old))

	rec := httptest.NewRecorder()
	s, err := m.Login(ctx, rec, old, "acc", "ref", "lan")
	require.NoError(t, err)

	assert.NotEqual(t, "pre", s.ID)
	assert.Equal(t, "acc", s.AccessToken)
	assert.Equal(t, ThemeDark, s.Theme)
	require.NotNil(t, s.BuyNow)

	_, err = store.Get(ctx, "pre")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, s.ID, rec.Result().Cookies()[0].Value)
}

func TestManager_LogoutAndExpire(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newManager(store)
	ctx := context.Background()

	s := &Session{ID: "x", Theme: ThemeDark}
	s.SetTokens("a", "r", "lan")
	require.NoError(t, store.Save(ctx, s))

	require.NoError(t, m.Expire(ctx, "x"))
	got, _ := store.Get(ctx, "x")
	assert.False(t, got.Authenticated())

	require.NoError(t, m.Logout(ctx, "x"))
	got, _ = store.Get(ctx, "x")
	require.NotNil(t, got.Flash)
	assert.Equal(t, ThemeDark, got.Theme)

	assert.NoError(t, m.Logout(ctx, "unknown"))
}

func TestTokenSource_ReadsFresh(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	s := &Session{ID: "t"}
	s.SetTokens("one", "", "")
	require.NoError(t, store.Save(ctx, s))

	ts := NewTokenSource(store)
	reqCtx := NewContext(ctx, &Session{ID: "t", AccessToken: "stale copy"})

	tok, err := ts.Token(reqCtx)
	require.NoError(t, err)
	assert.Equal(t, "one", tok)

	_, err = store.Update(ctx, "t", func(s *Session) error { s.ClearCredentials(); return nil })
	require.NoError(t, err)

	tok, err = ts.Token(reqCtx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)

	tok, err = ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok, "no session in context")
}
