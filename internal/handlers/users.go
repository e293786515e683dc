package handlers

import (
	"net/http"

	"github.com/safar/go-shop-api/internal/auth"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/store"
)

// ListUsers is the admin directory.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1, 0)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := store.ListUsers(r.Context(), h.db, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type setRoleCommand struct {
	Admin bool `json:"is_admin"`
}

// SetUserRole grants or revokes the admin flag. An admin cannot revoke their
// own flag; someone else has to do it, so the system can never talk itself
// out of its last administrator.
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	var cmd setRoleCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	p, _ := auth.FromContext(r.Context())
	if id == p.UserID && !cmd.Admin {
		h.writeError(w, database.ErrSelfLockout)
		return
	}

	user, err := store.SetAdmin(r.Context(), h.db, id, cmd.Admin)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes an account. Admins cannot delete themselves, for the
// same reason they cannot demote themselves.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	p, _ := auth.FromContext(r.Context())
	if id == p.UserID {
		h.writeError(w, database.ErrSelfLockout)
		return
	}

	if err := store.DeleteUser(r.Context(), h.db, id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	productID := h.idParam(w, r, "productID")
	if productID == 0 {
		return
	}

	p, _ := auth.FromContext(r.Context())
	if err := store.AddFavorite(r.Context(), h.db, p.UserID, productID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	productID := h.idParam(w, r, "productID")
	if productID == 0 {
		return
	}

	p, _ := auth.FromContext(r.Context())
	if err := store.RemoveFavorite(r.Context(), h.db, p.UserID, productID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	ids, err := store.ListFavorites(r.Context(), h.db, p.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string][]int64{"product_ids": ids})
}
