package storefront

import (
	"fmt"
	"net/http"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/form"
	"github.com/dukerupert/atelier/internal/handler"
)

// ReviewHandler lets shoppers write and manage reviews.
type ReviewHandler struct {
	reviews Reviews
	rs      *handler.Responder
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews Reviews, rs *handler.Responder) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, rs: rs}
}

type reviewForm struct {
	Rating  int    `form:"rating" validate:"gte=1,lte=5"`
	Comment string `form:"comment" validate:"required,min=10,max=1000"`
	OrderID int64  `form:"order_id"`
}

// Create handles POST /products/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "review.create"
	productID, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.rs.Fail(w, r, domain.Invalid(op, "Invalid form data."), "")
		return
	}

	var f reviewForm
	if err := form.Decode(op, r.PostForm, &f); err != nil {
		h.rs.Fail(w, r, err, "")
		return
	}
	form.Trim(&f)
	if err := form.Validate(op, f); err != nil {
		h.rs.Fail(w, r, err, "")
		return
	}

	req := api.CreateReviewRequest{Product: productID, Rating: f.Rating, Comment: f.Comment}
	if f.OrderID > 0 {
		req.Order = &f.OrderID
	}
	if err := h.reviews.CreateReview(r.Context(), req); err != nil {
		h.rs.Fail(w, r, err, "We couldn't post your review.")
		return
	}
	h.rs.Success(w, r, "Thanks for your review!", fmt.Sprintf("/products/%d#reviews", productID))
}

// Mine handles GET /reviews
func (h *ReviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.MyReviews(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load your reviews.")
		return
	}
	h.rs.Page(w, r, "storefront/reviews", map[string]interface{}{
		"Title":   "My reviews",
		"Reviews": reviews,
	})
}

// ConfirmDelete handles GET /reviews/{id}/delete
func (h *ReviewHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	h.rs.Page(w, r, "storefront/confirm", map[string]interface{}{
		"Title":   "Delete review",
		"Heading": "Delete this review?",
		"Body":    "Your rating and comment will be removed from the product page.",
		"Action":  fmt.Sprintf("/reviews/%d/delete", id),
		"Confirm": "Delete review",
		"Return":  "/reviews",
	})
}

// Delete handles POST /reviews/{id}/delete
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := h.reviews.DeleteReview(r.Context(), id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't delete your review.")
		return
	}
	h.rs.Success(w, r, "Review deleted.", "/reviews")
}
