package admin

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/handler"
)

// UserHandler handles account management routes
type UserHandler struct {
	shop BackOffice
	rs   *handler.Responder
}

// NewUserHandler creates a new user handler
func NewUserHandler(shop BackOffice, rs *handler.Responder) *UserHandler {
	return &UserHandler{shop: shop, rs: rs}
}

// List handles GET /admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	users, err := h.shop.Users(r.Context(), q)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load accounts.")
		return
	}
	h.rs.Page(w, r, "admin/users", map[string]interface{}{
		"Title": "Users",
		"Users": users.Results,
		"Pager": handler.Paginate(r, q.Page, users.Page),
		"Query": q,
	})
}

// SetActive handles POST /admin/users/{id}/active
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	active := r.PostFormValue("active") == "true"
	if err := h.shop.SetUserActive(r.Context(), id, active); err != nil {
		h.rs.Fail(w, r, err, "We couldn't update the account.")
		return
	}

	msg := "Account deactivated."
	if active {
		msg = "Account activated."
		recordAction("user_activate")
	} else {
		recordAction("user_deactivate")
	}
	h.rs.Success(w, r, msg, handler.Back(r, "/admin/users"))
}
