package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/safar/go-shop-api/internal/events"
	"github.com/safar/go-shop-api/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type productCommand struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int             `json:"stock_quantity" validate:"min=0"`
	Channel     string          `json:"channel" validate:"required,oneof=shop library"`
	Kind        string          `json:"kind" validate:"required,oneof=physical digital"`
	CategoryID  *int64          `json:"category_id" validate:"omitempty,min=1"`
	Tags        []string        `json:"tags" validate:"max=20,dive,max=50"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd productCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	if cmd.Price.IsNegative() {
		h.writeErrorMessage(w, http.StatusBadRequest, "VALIDATION", "price must not be negative")
		return
	}

	product, err := store.CreateProduct(r.Context(), h.db, store.CreateProductRequest{
		SKU:         cmd.SKU,
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		Channel:     cmd.Channel,
		Kind:        cmd.Kind,
		CategoryID:  cmd.CategoryID,
		Tags:        cmd.Tags,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusCreated, product)
}

// ListProducts is the public storefront listing. Responses are served from
// the catalog cache when possible; the key embeds the query string, so every
// filter and page combination caches independently.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	cacheKey := "products?" + r.URL.RawQuery
	if cached, ok := h.cache.Get(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	filter := store.ProductFilter{Channel: r.URL.Query().Get("channel")}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.writeErrorMessage(w, http.StatusBadRequest, "BAD_ID", "invalid category_id")
			return
		}
		filter.CategoryID = &id
	}

	page := queryInt(r, "page", 1, 0)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := store.ListProducts(r.Context(), h.db, filter, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if payload, err := json.Marshal(result); err == nil {
		h.cache.Set(r.Context(), cacheKey, payload)
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	cacheKey := "product:" + strconv.FormatInt(id, 10)
	if cached, ok := h.cache.Get(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	product, err := store.GetProduct(r.Context(), h.db, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if payload, err := json.Marshal(product); err == nil {
		h.cache.Set(r.Context(), cacheKey, payload)
	}
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	var cmd productCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	if cmd.Price.IsNegative() {
		h.writeErrorMessage(w, http.StatusBadRequest, "VALIDATION", "price must not be negative")
		return
	}

	product, err := store.UpdateProduct(r.Context(), h.db, id, store.UpdateProductRequest{
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Channel:     cmd.Channel,
		Kind:        cmd.Kind,
		CategoryID:  cmd.CategoryID,
		Tags:        cmd.Tags,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	if err := store.DeleteProduct(r.Context(), h.db, id); err != nil {
		h.writeError(w, err)
		return
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusNoContent, nil)
}

type adjustStockCommand struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustStock applies a signed manual stock movement. A negative delta that
// takes the counter to or below the alert threshold raises a low-stock event,
// the same as a sale would.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	var cmd adjustStockCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	newStock, err := store.AdjustStock(r.Context(), h.db, id, cmd.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if cmd.Delta < 0 && newStock <= h.cfg.Shop.LowStockThreshold {
		product, err := store.GetProduct(r.Context(), h.db, id)
		name := ""
		if err == nil {
			name = product.Name
		}
		h.publishStockLow(store.StockLevel{ProductID: id, Name: name, Stock: newStock})
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"product_id":     id,
		"stock_quantity": newStock,
	})
}

func (h *Handler) publishStockLow(level store.StockLevel) {
	err := h.bus.Publish(events.TopicStockLow, events.StockLowEvent{
		ProductID: level.ProductID,
		Name:      level.Name,
		Stock:     level.Stock,
		Threshold: h.cfg.Shop.LowStockThreshold,
	})
	if err != nil {
		h.logger.Error("publish low stock event",
			zap.Int64("product_id", level.ProductID), zap.Error(err))
	}
}
