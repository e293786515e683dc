package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	Favorites    []int64   `json:"favorites,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Channel is the sales category a product belongs to, not a notification
// channel.
const (
	ChannelShop    = "shop"
	ChannelLibrary = "library"
)

const (
	KindPhysical = "physical"
	KindDigital  = "digital"
)

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Channel       string          `json:"channel"`
	Kind          string          `json:"kind"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Tracked reports whether the product's inventory counter is authoritative.
// Digital items are sold without a stock constraint.
func (p *Product) Tracked() bool {
	return p.Kind == KindPhysical
}

// GuestContact is embedded in an order placed without an account.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Order struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	UserID       *int64          `json:"user_id,omitempty"`
	Guest        *GuestContact   `json:"guest,omitempty"`
	Address      string          `json:"address"`
	Phone        string          `json:"phone"`
	Status       OrderStatus     `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ItemCount    int             `json:"item_count"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CanceledBy   string          `json:"canceled_by,omitempty"`
	CanceledAt   *time.Time      `json:"canceled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Items        []OrderItem     `json:"items,omitempty"`
}

// OrderItem is a snapshot of a product at the moment the order was placed.
// Name, price and the restock flag are never re-read from the catalog.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Restock   bool            `json:"restock"`
}

type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Banner struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	LinkURL   string    `json:"link_url,omitempty"`
	Active    bool      `json:"active"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification records the outcome of a single dispatch channel attempt.
type Notification struct {
	ID        int64     `json:"id"`
	OrderCode string    `json:"order_code,omitempty"`
	Event     string    `json:"event"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
