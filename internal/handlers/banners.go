package handlers

import (
	"net/http"

	"github.com/safar/go-shop-api/internal/store"
)

type bannerCommand struct {
	Title    string `json:"title" validate:"required,max=200"`
	ImageURL string `json:"image_url" validate:"required,url"`
	LinkURL  string `json:"link_url" validate:"omitempty,url"`
	Active   bool   `json:"active"`
	Position int    `json:"position" validate:"min=0"`
}

func (h *Handler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var cmd bannerCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	banner, err := store.CreateBanner(r.Context(), h.db, store.BannerRequest{
		Title:    cmd.Title,
		ImageURL: cmd.ImageURL,
		LinkURL:  cmd.LinkURL,
		Active:   cmd.Active,
		Position: cmd.Position,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, banner)
}

func (h *Handler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	var cmd bannerCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	banner, err := store.UpdateBanner(r.Context(), h.db, id, store.BannerRequest{
		Title:    cmd.Title,
		ImageURL: cmd.ImageURL,
		LinkURL:  cmd.LinkURL,
		Active:   cmd.Active,
		Position: cmd.Position,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, banner)
}

// ListBanners serves active banners to the storefront; admins can pass
// ?all=true to include inactive ones.
func (h *Handler) ListBanners(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	banners, err := store.ListBanners(r.Context(), h.db, activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, banners)
}

func (h *Handler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	if err := store.DeleteBanner(r.Context(), h.db, id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}
