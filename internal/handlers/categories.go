package handlers

import (
	"net/http"

	"github.com/safar/go-shop-api/internal/store"
)

type createCategoryCommand struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd createCategoryCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	category, err := store.CreateCategory(r.Context(), h.db, cmd.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.db)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	if err := store.DeleteCategory(r.Context(), h.db, id); err != nil {
		h.writeError(w, err)
		return
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusNoContent, nil)
}
