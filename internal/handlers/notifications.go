package handlers

import (
	"net/http"

	"github.com/safar/go-shop-api/internal/store"
)

// ListNotifications shows the dispatch log so an operator can see which
// channel attempts failed and why.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1, 0)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := store.ListNotifications(r.Context(), h.db, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
