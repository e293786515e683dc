package handlers

import (
	"net/http"

	"github.com/safar/go-shop-api/internal/auth"
	"github.com/safar/go-shop-api/internal/events"
	"github.com/safar/go-shop-api/internal/models"
	"github.com/safar/go-shop-api/internal/store"
	"go.uber.org/zap"
)

type orderItemCommand struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=1000"`
}

type guestContactCommand struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

type createOrderCommand struct {
	Address string               `json:"address" validate:"required,min=5,max=500"`
	Phone   string               `json:"phone" validate:"omitempty,e164"`
	Guest   *guestContactCommand `json:"guest"`
	Items   []orderItemCommand   `json:"items" validate:"required,min=1,max=100,dive"`
}

// CreateOrder places an order for the authenticated user, or as a guest when
// no session is present. Guest orders must carry contact details so the
// confirmation has somewhere to go.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd createOrderCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	req := store.CreateOrderRequest{
		Address: cmd.Address,
		Phone:   cmd.Phone,
	}
	for _, item := range cmd.Items {
		req.Items = append(req.Items, store.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if p, ok := auth.FromContext(r.Context()); ok {
		userID := p.UserID
		req.UserID = &userID
	} else {
		if cmd.Guest == nil {
			h.writeErrorMessage(w, http.StatusBadRequest, "VALIDATION", "guest contact is required without a session")
			return
		}
		if err := h.validate.Struct(cmd.Guest); err != nil {
			h.writeErrorMessage(w, http.StatusBadRequest, "VALIDATION", "invalid guest contact")
			return
		}
		req.Guest = &models.GuestContact{
			Name:  cmd.Guest.Name,
			Email: cmd.Guest.Email,
			Phone: cmd.Guest.Phone,
		}
	}

	order, levels, err := store.CreateOrder(r.Context(), h.db, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.publishOrderEvent(events.TopicOrderPlaced, order.Code)
	for _, level := range levels {
		if level.Stock <= h.cfg.Shop.LowStockThreshold {
			h.publishStockLow(level)
		}
	}

	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusCreated, order)
}

// ListMyOrders pages the caller's order history with an opaque cursor.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	limit := queryInt(r, "limit", 20, 100)
	page, err := store.ListUserOrdersCursor(r.Context(), h.db, p.UserID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		h.writeErrorMessage(w, http.StatusBadRequest, "BAD_CURSOR", "invalid cursor")
		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

// GetOrder returns one order. Customers only see their own; admins see all.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	order, err := store.GetOrder(r.Context(), h.db, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	if !p.Admin && (order.UserID == nil || *order.UserID != p.UserID) {
		// Hide the order's existence from non-owners.
		h.writeErrorMessage(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type cancelOrderCommand struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelOrder flips a PLACED order to CANCELED. Customers can cancel their
// own orders; admins can cancel anyone's, and the actor is recorded either
// way.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	var cmd cancelOrderCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	p, _ := auth.FromContext(r.Context())
	actor := models.CancelActorUser
	if p.Admin {
		actor = models.CancelActorAdmin
	} else {
		order, err := store.GetOrder(r.Context(), h.db, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if order.UserID == nil || *order.UserID != p.UserID {
			h.writeErrorMessage(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
			return
		}
	}

	order, err := store.CancelOrder(r.Context(), h.db, id, actor, cmd.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.publishOrderEvent(events.TopicOrderCanceled, order.Code)
	h.cache.Invalidate(r.Context())
	h.writeJSON(w, http.StatusOK, order)
}

// AdvanceOrder moves an order one step along PLACED, IN_DELIVERY, DELIVERED.
func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	id := h.idParam(w, r, "id")
	if id == 0 {
		return
	}

	order, err := store.AdvanceOrderStatus(r.Context(), h.db, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// ListAllOrders is the admin view, optionally filtered by status.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.ValidStatus(status) {
		h.writeErrorMessage(w, http.StatusBadRequest, "BAD_STATUS", "unknown order status")
		return
	}

	page := queryInt(r, "page", 1, 0)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := store.ListAllOrders(r.Context(), h.db, status, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) publishOrderEvent(topic, code string) {
	if err := h.bus.Publish(topic, events.OrderEvent{OrderCode: code}); err != nil {
		h.logger.Error("publish order event",
			zap.String("topic", topic), zap.String("order_code", code), zap.Error(err))
	}
}
