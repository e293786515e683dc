package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-shop-api/internal/models"
)

// RecordNotification logs one channel attempt's outcome. Dispatch is
// best-effort, so a failed insert here is reported but never blocks a send.
func RecordNotification(ctx context.Context, db *sql.DB, n models.Notification) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (order_code, event, channel, recipient, ok, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		n.OrderCode, n.Event, n.Channel, n.Recipient, n.OK, n.Detail)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func ListNotifications(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_code, event, channel, recipient, ok, detail, created_at
		 FROM notifications
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var orderCode, detail sql.NullString
		err := rows.Scan(&n.ID, &orderCode, &n.Event, &n.Channel, &n.Recipient, &n.OK, &detail, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.OrderCode = orderCode.String
		n.Detail = detail.String
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(notifications, total, page, pageSize), nil
}
