package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/session"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// LoginPath is never auth-gated, so a 401 redirect cannot loop.
const LoginPath = "/login"

// Responder is shared by the storefront and back-office handlers. It builds
// layout data, renders pages and turns failed shop calls into one consistent
// shopper-facing treatment.
type Responder struct {
	Renderer *Renderer
	Sessions *session.Manager
	Logger   *slog.Logger
}

// NewResponder creates a responder.
func NewResponder(renderer *Renderer, sessions *session.Manager, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Renderer: renderer, Sessions: sessions, Logger: logger}
}

// PageData returns the data every layout expects. A pending flash message is
// consumed here so it is shown exactly once.
func (rs *Responder) PageData(r *http.Request) map[string]interface{} {
	ctx := r.Context()
	s := session.FromContext(ctx)

	data := map[string]interface{}{
		"Year":          time.Now().Year(),
		"Path":          r.URL.Path,
		"CSRFToken":     middleware.GetCSRFToken(ctx),
		"CartCount":     middleware.GetCartCount(ctx),
		"Authenticated": s.Authenticated(),
		"Dark":          s.DarkMode(),
	}
	if s == nil {
		return data
	}
	data["Username"] = s.Username

	if s.Flash != nil {
		var flash *session.Flash
		_, err := rs.Sessions.Update(ctx, s.ID, func(sess *session.Session) error {
			flash = sess.TakeFlash()
			return nil
		})
		if err != nil {
			rs.logger(r).Warn("failed to consume flash", slog.String("error", err.Error()))
			flash = s.Flash
		}
		s.Flash = nil
		if flash != nil {
			data["Flash"] = flash
		}
	}
	return data
}

// Page renders a full page with layout data merged in.
func (rs *Responder) Page(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	rs.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus is Page with an explicit status code.
func (rs *Responder) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) {
	page := rs.PageData(r)
	for k, v := range data {
		page[k] = v
	}
	rs.Renderer.RenderStatus(w, status, name, page)
}

// Flash queues a one-shot message on the caller's session.
func (rs *Responder) Flash(r *http.Request, kind, message string) {
	if sid := session.IDFromContext(r.Context()); sid != "" {
		rs.Sessions.Flash(r.Context(), sid, kind, message)
	}
}

// Redirect sends a 303 so the browser follows up with a GET. htmx requests
// get an HX-Redirect header instead.
func (rs *Responder) Redirect(w http.ResponseWriter, r *http.Request, to string) {
	if middleware.IsHTMX(r) {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// Success flashes message and redirects to to.
func (rs *Responder) Success(w http.ResponseWriter, r *http.Request, message, to string) {
	rs.Flash(r, session.FlashSuccess, message)
	rs.Redirect(w, r, to)
}

// Back returns the same-host page the request came from, or fallback.
func Back(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	if ref.Path == r.URL.Path && r.Method != http.MethodGet {
		return fallback
	}
	return ref.RequestURI()
}

// Fail is the single place a failed call is turned into a response.
//
// A rejected credential clears the stored tokens and sends the visitor to the
// login page once. Form posts come back to where they started with the message
// as a flash. Page loads render the error page with the mapped status.
// fallback is shown when the error carries no message fit for a shopper.
func (rs *Responder) Fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	ctx := r.Context()
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	message := Message(err, fallback)
	logger := rs.logger(r)

	switch code {
	case domain.EUNAUTHORIZED:
		s := session.FromContext(ctx)
		if s != nil {
			if xerr := rs.Sessions.Expire(ctx, s.ID); xerr != nil {
				logger.Warn("failed to expire session", slog.String("error", xerr.Error()))
			}
			s.ClearCredentials()
		}
		if r.URL.Path != LoginPath {
			if s != nil {
				rs.Sessions.Flash(ctx, s.ID, session.FlashWarning, "Your session has expired. Please sign in again.")
			}
			rs.Redirect(w, r, middleware.LoginURL(middleware.ReturnPath(r)))
			return
		}
	case domain.EINTERNAL:
		logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("op", domain.ErrorOp(err)),
		)
		telemetry.CaptureError(ctx, err, map[string]interface{}{"op": domain.ErrorOp(err)})
	case domain.EUNAVAILABLE:
		logger.Warn("shop api unavailable",
			slog.String("error", err.Error()),
			slog.String("op", domain.ErrorOp(err)),
		)
	default:
		logger.Info("request rejected",
			slog.String("error", err.Error()),
			slog.String("code", code),
		)
	}

	if wantsJSON(r) || middleware.IsHTMX(r) {
		writeError(w, r, status, errorDetail{Code: code, Message: message, Fields: domain.GetValidationFields(err)})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		rs.Flash(r, session.FlashError, message)
		rs.Redirect(w, r, Back(r, "/"))
		return
	}

	rs.PageStatus(w, r, status, "error", map[string]interface{}{
		"Status":  status,
		"Title":   http.StatusText(status),
		"Message": message,
		"Fields":  domain.GetValidationFields(err),
	})
}

// NotFound renders the not-found page.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.PageStatus(w, r, http.StatusNotFound, "error", map[string]interface{}{
		"Status":  http.StatusNotFound,
		"Title":   http.StatusText(http.StatusNotFound),
		"Message": "We couldn't find that page.",
	})
}

// Message picks the text shown to a shopper for err.
func Message(err error, fallback string) string {
	switch domain.ErrorCode(err) {
	case domain.EINTERNAL:
		if fallback != "" {
			return fallback
		}
		return domain.ErrorMessage(err)
	case domain.EINVALID:
		if fields := domain.GetValidationFields(err); len(fields) > 0 {
			return joinFields(fields)
		}
	}
	if msg := domain.ErrorMessage(err); msg != "" {
		return msg
	}
	return fallback
}

// joinFields flattens field messages in a stable order.
func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return strings.Join(msgs, " ")
}

func (rs *Responder) logger(r *http.Request) *slog.Logger {
	return middleware.GetLogger(r.Context(), rs.Logger)
}
