package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
)

func CreateCategory(ctx context.Context, db *sql.DB, name string) (*models.Category, error) {
	c := &models.Category{}
	err := db.QueryRowContext(ctx,
		`INSERT INTO categories (name, created_at)
		 VALUES ($1, NOW())
		 RETURNING id, name, created_at`,
		name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, database.ErrDuplicateCategory
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func ListCategories(ctx context.Context, db *sql.DB) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

// DeleteCategory refuses while any product still references the category.
// The foreign key is RESTRICT, so the refusal holds under concurrency too.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrCategoryInUse
		}
		return fmt.Errorf("delete category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrCategoryNotFound
	}
	return nil
}
