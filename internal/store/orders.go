package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	UserID  *int64
	Guest   *models.GuestContact
	Address string
	Phone   string
	Items   []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

// Order codes are human-readable and unique; the uuid fragment keeps two
// orders created in the same nanosecond apart.
func generateOrderCode() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}

const orderColumns = `id, code, user_id, guest_name, guest_email, guest_phone, address, phone, status,
		total_amount, item_count, cancel_reason, canceled_by, canceled_at, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var guestName, guestEmail, guestPhone, cancelReason, canceledBy sql.NullString
	err := row.Scan(
		&o.ID,
		&o.Code,
		&o.UserID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&o.Address,
		&o.Phone,
		&o.Status,
		&o.TotalAmount,
		&o.ItemCount,
		&cancelReason,
		&canceledBy,
		&o.CanceledAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if guestName.Valid || guestEmail.Valid || guestPhone.Valid {
		o.Guest = &models.GuestContact{
			Name:  guestName.String,
			Email: guestEmail.String,
			Phone: guestPhone.String,
		}
	}
	o.CancelReason = cancelReason.String
	o.CanceledBy = canceledBy.String
	return o, nil
}

// StockLevel reports a tracked product's counter right after a sale, so the
// caller can raise low-stock alerts without re-reading the catalog.
type StockLevel struct {
	ProductID int64
	Name      string
	Stock     int
}

// CreateOrder places an order in one retrying serializable transaction. Each
// line item snapshots the product's name, price and restock flag at
// submission time; the totals are computed once from the snapshot. Stock for
// tracked items is taken with the conditional decrement, so two concurrent
// sales of the last unit cannot both succeed.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, []StockLevel, error) {
	if len(req.Items) == 0 {
		return nil, nil, fmt.Errorf("order must have at least one item")
	}

	var order *models.Order
	var levels []StockLevel

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		if req.UserID != nil {
			var exists bool
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
				*req.UserID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check user exists: %w", err)
			}
			if !exists {
				return database.ErrUserNotFound
			}
		}

		totalAmount := decimal.Zero
		itemCount := 0
		items := make([]models.OrderItem, 0, len(req.Items))
		levels = levels[:0]

		for _, item := range req.Items {
			var (
				name  string
				price decimal.Decimal
				kind  string
			)
			err := tx.QueryRowContext(ctx,
				`SELECT name, price, kind FROM products WHERE id = $1`,
				item.ProductID).Scan(&name, &price, &kind)
			if err != nil {
				if err == sql.ErrNoRows {
					return database.ErrProductNotFound
				}
				return fmt.Errorf("load product %d: %w", item.ProductID, err)
			}

			tracked := kind == models.KindPhysical
			if tracked {
				newStock, err := decrementStockTx(ctx, tx, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				levels = append(levels, StockLevel{ProductID: item.ProductID, Name: name, Stock: newStock})
			}

			subtotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totalAmount = totalAmount.Add(subtotal)
			itemCount += item.Quantity

			items = append(items, models.OrderItem{
				ProductID: item.ProductID,
				Name:      name,
				UnitPrice: price,
				Quantity:  item.Quantity,
				Subtotal:  subtotal,
				Restock:   tracked,
			})
		}

		var guestName, guestEmail, guestPhone *string
		if req.Guest != nil {
			guestName, guestEmail, guestPhone = &req.Guest.Name, &req.Guest.Email, &req.Guest.Phone
		}

		code := generateOrderCode()
		var orderID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (code, user_id, guest_name, guest_email, guest_phone, address, phone,
			                     status, total_amount, item_count, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
			 RETURNING id`,
			code, req.UserID, guestName, guestEmail, guestPhone, req.Address, req.Phone,
			models.StatusPlaced, totalAmount, itemCount).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, subtotal, restock)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				orderID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.Subtotal, item.Restock)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		order, err = scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
		if err != nil {
			return fmt.Errorf("fetch created order: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	order.Items, err = getOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, nil, err
	}

	return order, levels, nil
}

func getOrderItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, name, unit_price, quantity, subtotal, restock
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
			&item.Restock,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	order.Items, err = getOrderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func GetOrderByCode(ctx context.Context, db *sql.DB, code string) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE code = $1`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by code: %w", err)
	}

	order.Items, err = getOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// AdvanceOrderStatus moves an order one step along the forward path. The
// write is conditional on the status it read, so two concurrent advances
// cannot both apply; a zero-row result is re-read and disambiguated.
func AdvanceOrderStatus(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("get order status: %w", err)
		}

		next, ok := current.Next()
		if !ok {
			return advanceRefusal(current)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW()
			 WHERE id = $2 AND status = $3`,
			next, id, current)
		if err != nil {
			return fmt.Errorf("advance order status: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			// Someone moved the order between the read and the write;
			// re-read to report what actually blocked the advance.
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			if err != nil {
				return fmt.Errorf("get order status: %w", err)
			}
			return advanceRefusal(current)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, id)
}

// advanceRefusal names the reason a status cannot move forward: a canceled
// order is reported as such, anything else non-advanceable is an illegal
// transition.
func advanceRefusal(status models.OrderStatus) error {
	if status == models.StatusCanceled {
		return database.ErrAlreadyCanceled
	}
	return database.ErrInvalidTransition
}

// CancelOrder flips a PLACED order to CANCELED and credits stock back for
// every restock-flagged line item. The status flip and the restitution run
// in one transaction: the terminal-state precondition makes the credit
// exactly-once, and a crash cannot leave a half-credited canceled order.
func CancelOrder(ctx context.Context, db *sql.DB, id int64, actor, reason string) (*models.Order, error) {
	if len(reason) < models.MinCancelReasonLen {
		return nil, database.ErrReasonTooShort
	}

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, cancel_reason = $2, canceled_by = $3, canceled_at = NOW(), updated_at = NOW()
			 WHERE id = $4 AND status = $5`,
			models.StatusCanceled, reason, actor, id, models.StatusPlaced)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			var status models.OrderStatus
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			if err != nil {
				return fmt.Errorf("get order status: %w", err)
			}
			if status == models.StatusCanceled {
				return database.ErrAlreadyCanceled
			}
			return database.ErrInvalidTransition
		}

		itemRows, err := tx.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items
			 WHERE order_id = $1 AND restock`,
			id)
		if err != nil {
			return fmt.Errorf("load restock items: %w", err)
		}
		defer itemRows.Close()

		type credit struct {
			productID int64
			quantity  int
		}
		var credits []credit
		for itemRows.Next() {
			var c credit
			if err := itemRows.Scan(&c.productID, &c.quantity); err != nil {
				return fmt.Errorf("scan restock item: %w", err)
			}
			credits = append(credits, c)
		}
		if err := itemRows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		for _, c := range credits {
			if err := creditStockTx(ctx, tx, c.productID, c.quantity); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, id)
}

// ListUserOrdersCursor pages one purchaser's order history newest-first.
func ListUserOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListAllOrders is the admin view, offset-paged, optionally by status.
func ListAllOrders(ctx context.Context, db *sql.DB, status string, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`,
		status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}
