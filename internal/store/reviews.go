package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
)

const reviewColumns = `id, product_id, user_id, rating, comment, created_at`

func scanReview(row rowScanner) (*models.Review, error) {
	r := &models.Review{}
	err := row.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateReview inserts one review per (product, author). Uniqueness is a
// database constraint, not a check-then-insert, so two concurrent
// submissions by the same author cannot both land.
func CreateReview(ctx context.Context, db *sql.DB, productID, userID int64, rating int, comment string) (*models.Review, error) {
	review, err := scanReview(db.QueryRowContext(ctx,
		`INSERT INTO reviews (product_id, user_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING `+reviewColumns,
		productID, userID, rating, comment))
	if err != nil {
		if database.IsUniqueViolation(err, "reviews_product_id_user_id_key") {
			return nil, database.ErrDuplicateReview
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func GetReview(ctx context.Context, db *sql.DB, id int64) (*models.Review, error) {
	review, err := scanReview(db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func ListProductReviews(ctx context.Context, db *sql.DB, productID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE product_id = $1`, productID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE product_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		productID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(reviews, total, page, pageSize), nil
}

func DeleteReview(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrReviewNotFound
	}
	return nil
}
