package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/session"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/"},
		{"/orders?page=2", "/orders?page=2"},
		{"https://evil.test/", "/"},
		{"//evil.test/", "/"},
		{"/\\evil.test", "/"},
		{"/login", "/"},
		{"/login?next=%2F", "/"},
		{"/login-help", "/login-help"},
	}

	for _, tt := range tests {
		if got := safeNext(tt.next); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t, false)
	env.sess.Theme = session.ThemeDark
	if err := env.store.Save(context.Background(), env.sess); err != nil {
		t.Fatal(err)
	}

	shop := &mockShop{loginFunc: func(ctx context.Context, username, password string) (api.Tokens, error) {
		if username != "mai" || password != "s3cret-pass" {
			t.Errorf("unexpected credentials %q/%q", username, password)
		}
		return api.Tokens{Access: "a1", Refresh: "r1"}, nil
	}}
	h := NewAuthHandler(shop, shop, env.rs)

	form := url.Values{"username": {"  mai "}, "password": {"s3cret-pass"}, "next": {"/orders"}}
	rec := httptest.NewRecorder()
	h.Login(rec, env.request(http.MethodPost, "/login", form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/orders" {
		t.Errorf("expected redirect to /orders, got %q", loc)
	}

	var newID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "atelier_session" {
			newID = c.Value
		}
	}
	if newID == "" || newID == env.sess.ID {
		t.Fatalf("expected a fresh session cookie, got %q", newID)
	}
	s, err := env.store.Get(context.Background(), newID)
	if err != nil {
		t.Fatalf("new session not stored: %v", err)
	}
	if !s.Authenticated() || s.Username != "mai" || s.RefreshToken != "r1" {
		t.Errorf("credentials not stored: %+v", s)
	}
	if s.Theme != session.ThemeDark {
		t.Error("theme should survive login")
	}
	if s.Flash == nil || s.Flash.Message != "Welcome back, mai!" {
		t.Errorf("unexpected flash %+v", s.Flash)
	}
	if _, err := env.store.Get(context.Background(), env.sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Error("pre-login session should be gone")
	}
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	tests := []struct {
		name           string
		form           url.Values
		loginErr       error
		expectedStatus int
		contains       string
	}{
		{
			name:           "missing password",
			form:           url.Values{"username": {"mai"}},
			expectedStatus: http.StatusBadRequest,
			contains:       "Enter your username and password.",
		},
		{
			name:           "wrong password",
			form:           url.Values{"username": {"mai"}, "password": {"nope"}},
			loginErr:       domain.Unauthorized("auth.login", "No active account found with the given credentials"),
			expectedStatus: http.StatusUnauthorized,
			contains:       "Invalid username or password.",
		},
		{
			name:           "api down",
			form:           url.Values{"username": {"mai"}, "password": {"nope"}},
			loginErr:       domain.Unavailable(nil, "auth.login"),
			expectedStatus: http.StatusSeeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			shop := &mockShop{loginFunc: func(ctx context.Context, username, password string) (api.Tokens, error) {
				return api.Tokens{}, tt.loginErr
			}}
			h := NewAuthHandler(shop, shop, env.rs)

			rec := httptest.NewRecorder()
			h.Login(rec, env.request(http.MethodPost, "/login", tt.form))

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q", tt.contains)
			}
			if strings.Contains(rec.Body.String(), "nope") {
				t.Error("password echoed back into the form")
			}
			if env.stored(t).Authenticated() {
				t.Error("session should stay anonymous")
			}
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	valid := url.Values{
		"username":     {"lan"},
		"email":        {"lan@example.com"},
		"phone_number": {"0901234567"},
		"password":     {"long-enough"},
		"password2":    {"long-enough"},
	}
	mismatched := url.Values{}
	for k, v := range valid {
		mismatched[k] = v
	}
	mismatched.Set("password2", "different!")

	tests := []struct {
		name           string
		form           url.Values
		registerErr    error
		expectCall     bool
		expectedStatus int
		contains       string
	}{
		{name: "created", form: valid, expectCall: true, expectedStatus: http.StatusSeeOther},
		{name: "passwords differ", form: mismatched, expectedStatus: http.StatusBadRequest, contains: "Does not match."},
		{
			name:           "username taken",
			form:           valid,
			registerErr:    domain.NewValidationError("auth.register", "username", "A user with that username already exists."),
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
			contains:       "A user with that username already exists.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			called := false
			shop := &mockShop{registerFunc: func(ctx context.Context, req api.RegisterRequest) error {
				called = true
				if req.Email != "lan@example.com" {
					t.Errorf("unexpected request %+v", req)
				}
				return tt.registerErr
			}}
			h := NewAuthHandler(shop, shop, env.rs)

			rec := httptest.NewRecorder()
			h.Register(rec, env.request(http.MethodPost, "/register", tt.form))

			if called != tt.expectCall {
				t.Errorf("expected api call=%v, got %v", tt.expectCall, called)
			}
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q", tt.contains)
			}
		})
	}
}

func TestAuthHandler_LogoutAndTheme(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewAuthHandler(&mockShop{}, &mockShop{}, env.rs)

	rec := httptest.NewRecorder()
	r := env.request(http.MethodPost, "/theme", url.Values{})
	r.Header.Set("Referer", "http://example.com/products")
	h.ToggleTheme(rec, r)
	if loc := rec.Header().Get("Location"); loc != "/products" {
		t.Errorf("expected redirect back, got %q", loc)
	}
	if !env.stored(t).DarkMode() {
		t.Error("expected dark theme")
	}

	rec = httptest.NewRecorder()
	h.Logout(rec, env.request(http.MethodPost, "/logout", url.Values{}))
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect home, got %q", loc)
	}
	s := env.stored(t)
	if s.Authenticated() {
		t.Error("expected credentials cleared")
	}
	if !s.DarkMode() {
		t.Error("theme should survive logout")
	}
}
