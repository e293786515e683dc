package models

type OrderStatus string

const (
	StatusPlaced     OrderStatus = "PLACED"
	StatusInDelivery OrderStatus = "IN_DELIVERY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCanceled   OrderStatus = "CANCELED"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// Next returns the single forward transition target for s. The forward path
// is strictly sequential: PLACED -> IN_DELIVERY -> DELIVERED.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case StatusPlaced:
		return StatusInDelivery, true
	case StatusInDelivery:
		return StatusDelivered, true
	default:
		return "", false
	}
}

// CanTransition reports whether s -> to is a legal transition.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if next, ok := s.Next(); ok && next == to {
		return true
	}
	// Cancellation is only reachable from the initial state.
	return s == StatusPlaced && to == StatusCanceled
}

func ValidStatus(s string) bool {
	switch OrderStatus(s) {
	case StatusPlaced, StatusInDelivery, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// Cancellation actors recorded on an order.
const (
	CancelActorUser  = "user"
	CancelActorAdmin = "admin"
)

// MinCancelReasonLen is the minimum length of a cancellation reason.
const MinCancelReasonLen = 10
