package storefront

import (
	"net/http"
	"strings"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/form"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/session"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// AuthHandler handles sign in, sign up, sign out and account pages.
type AuthHandler struct {
	accounts Accounts
	profiles Profiles
	rs       *handler.Responder
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Accounts, profiles Profiles, rs *handler.Responder) *AuthHandler {
	return &AuthHandler{accounts: accounts, profiles: profiles, rs: rs}
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type registerForm struct {
	Username    string `form:"username" validate:"required,min=3,max=150"`
	Email       string `form:"email" validate:"required,email"`
	FirstName   string `form:"first_name" validate:"max=150"`
	LastName    string `form:"last_name" validate:"max=150"`
	PhoneNumber string `form:"phone_number" validate:"omitempty,number,min=10,max=11"`
	Password    string `form:"password" validate:"required,min=8"`
	Password2   string `form:"password2" validate:"required,eqfield=Password"`
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if next == handler.LoginPath || strings.HasPrefix(next, handler.LoginPath+"?") {
		return "/"
	}
	return next
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if session.FromContext(r.Context()).Authenticated() {
		h.rs.Redirect(w, r, next)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginForm{Next: next}, "")
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, f loginForm, formError string) {
	f.Password = ""
	h.rs.PageStatus(w, r, status, "storefront/login", map[string]interface{}{
		"Title":     "Sign in",
		"Form":      f,
		"FormError": formError,
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login"
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginForm{}, "Invalid form data.")
		return
	}

	var f loginForm
	form.Decode(op, r.PostForm, &f)
	f.Username = strings.TrimSpace(f.Username)
	f.Next = safeNext(f.Next)
	if err := form.Validate(op, f); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, f, "Enter your username and password.")
		return
	}

	tokens, err := h.accounts.Login(ctx, f.Username, f.Password)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED, domain.EINVALID:
			loginOutcome("rejected")
			h.renderLogin(w, r, http.StatusUnauthorized, f, "Invalid username or password.")
		default:
			loginOutcome("error")
			h.rs.Fail(w, r, err, "We couldn't sign you in right now.")
		}
		return
	}

	s, err := h.rs.Sessions.Login(ctx, w, session.FromContext(ctx), tokens.Access, tokens.Refresh, f.Username)
	if err != nil {
		loginOutcome("error")
		h.rs.Fail(w, r, domain.Internal(err, op, "failed to store session"), "We couldn't sign you in right now.")
		return
	}
	loginOutcome("success")
	middleware.GetLogger(ctx).Info("shopper signed in")

	h.rs.Sessions.Flash(ctx, s.ID, session.FlashSuccess, "Welcome back, "+f.Username+"!")
	h.rs.Redirect(w, r, f.Next)
}

func loginOutcome(outcome string) {
	if telemetry.Business != nil {
		telemetry.Business.Logins.WithLabelValues(outcome).Inc()
	}
}

// RegisterPage handles GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		h.rs.Redirect(w, r, "/")
		return
	}
	h.renderRegister(w, r, http.StatusOK, registerForm{}, nil)
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, status int, f registerForm, fields map[string]string) {
	f.Password, f.Password2 = "", ""
	h.rs.PageStatus(w, r, status, "storefront/register", map[string]interface{}{
		"Title":  "Create account",
		"Form":   f,
		"Errors": fields,
	})
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "auth.register"
	if err := r.ParseForm(); err != nil {
		h.renderRegister(w, r, http.StatusBadRequest, registerForm{}, nil)
		return
	}

	var f registerForm
	form.Decode(op, r.PostForm, &f)
	password, password2 := f.Password, f.Password2
	form.Trim(&f)
	f.Password, f.Password2 = password, password2
	if err := form.Validate(op, f); err != nil {
		h.renderRegister(w, r, http.StatusBadRequest, f, domain.GetValidationFields(err))
		return
	}

	err := h.accounts.Register(r.Context(), api.RegisterRequest{
		Username:    f.Username,
		Password:    f.Password,
		Password2:   f.Password2,
		Email:       f.Email,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
	})
	if err != nil {
		if fields := domain.GetValidationFields(err); fields != nil {
			h.renderRegister(w, r, http.StatusBadRequest, f, fields)
			return
		}
		h.rs.Fail(w, r, err, "We couldn't create your account.")
		return
	}
	if telemetry.Business != nil {
		telemetry.Business.Signups.Inc()
	}
	h.rs.Success(w, r, "Your account is ready. Please sign in.", handler.LoginPath)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := sessionID(r); sid != "" {
		if err := h.rs.Sessions.Logout(r.Context(), sid); err != nil {
			h.rs.Fail(w, r, domain.Internal(err, "auth.logout", "failed to clear session"), "We couldn't sign you out.")
			return
		}
	}
	h.rs.Redirect(w, r, "/")
}

// ToggleTheme handles POST /theme
func (h *AuthHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	if sid := sessionID(r); sid != "" {
		if _, err := h.rs.Sessions.Update(r.Context(), sid, func(s *session.Session) error {
			s.ToggleTheme()
			return nil
		}); err != nil {
			h.rs.Fail(w, r, domain.Internal(err, "session.theme", "failed to store theme"), "We couldn't change the theme.")
			return
		}
	}
	h.rs.Redirect(w, r, handler.Back(r, "/"))
}

// Account handles GET /account
func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.CurrentUser(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load your account.")
		return
	}
	h.rs.Page(w, r, "storefront/account", map[string]interface{}{
		"Title": "My account",
		"User":  user,
	})
}
