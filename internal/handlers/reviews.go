package handlers

import (
	"net/http"
	"strconv"

	"github.com/safar/go-shop-api/internal/auth"
	"github.com/safar/go-shop-api/internal/store"
)

type createReviewCommand struct {
	ProductID int64  `json:"product_id" validate:"required,min=1"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// CreateReview adds the caller's review to a product. One review per product
// per author; a second submission conflicts.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var cmd createReviewCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	p, _ := auth.FromContext(r.Context())
	review, err := store.CreateReview(r.Context(), h.db, cmd.ProductID, p.UserID, cmd.Rating, cmd.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		h.writeErrorMessage(w, http.StatusBadRequest, "BAD_ID", "invalid product_id")
		return
	}

	page := queryInt(r, "page", 1, 0)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := store.ListProductReviews(r.Context(), h.db, productID, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// DeleteReview removes a review. Authors can delete their own; admins can
// delete any.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	p, _ := auth.FromContext(r.Context())
	if !p.Admin {
		review, err := store.GetReview(r.Context(), h.db, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if review.UserID != p.UserID {
			h.writeErrorMessage(w, http.StatusForbidden, "FORBIDDEN", "not the review author")
			return
		}
	}

	if err := store.DeleteReview(r.Context(), h.db, id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}
