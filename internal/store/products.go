package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, sku, name, description, price, stock_quantity, channel, kind, category_id, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.Channel,
		&p.Kind,
		&p.CategoryID,
		pq.Array(&p.Tags),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type CreateProductRequest struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Channel     string
	Kind        string
	CategoryID  *int64
	Tags        []string
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	query := `
		INSERT INTO products (sku, name, description, price, stock_quantity, channel, kind, category_id, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		req.SKU, req.Name, req.Description, req.Price, req.Stock,
		req.Channel, req.Kind, req.CategoryID, pq.Array(req.Tags)))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

type UpdateProductRequest struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Channel     string
	Kind        string
	CategoryID  *int64
	Tags        []string
}

// UpdateProduct edits catalog attributes. It deliberately does not touch
// stock_quantity; all stock movement goes through AdjustStock so the
// conditional write stays the single authority on the counter.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, req UpdateProductRequest) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, channel = $4, kind = $5,
		    category_id = $6, tags = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		req.Name, req.Description, req.Price, req.Channel, req.Kind,
		req.CategoryID, pq.Array(req.Tags), id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product that no order references.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// AdjustStock applies a signed delta to a product's stock counter as one
// conditional write. A negative delta (sale) only applies while the current
// stock covers it; the precondition and the update are a single statement,
// never a read-modify-write pair. Returns the new stock value.
//
// A zero-row result is disambiguated by a follow-up existence check, since
// the conditional update cannot tell a missing product from a failed
// precondition.
func AdjustStock(ctx context.Context, db *sql.DB, productID int64, delta int) (int, error) {
	var newStock int
	err := db.QueryRowContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity + $1 >= 0
		 RETURNING stock_quantity`,
		delta, productID).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`,
		productID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return 0, database.ErrProductNotFound
	}

	return 0, database.ErrInsufficientStock
}

// decrementStockTx is the in-transaction form of the conditional sale write,
// used while placing an order.
func decrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (int, error) {
	var newStock int
	err := tx.QueryRowContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1
		 RETURNING stock_quantity`,
		quantity, productID).Scan(&newStock)
	if err == sql.ErrNoRows {
		return 0, database.ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return newStock, nil
}

// creditStockTx returns canceled quantities to the shelf inside the
// cancellation transaction.
func creditStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("credit stock: %w", err)
	}
	return nil
}

type ProductFilter struct {
	Channel    string
	CategoryID *int64
}

func ListProducts(ctx context.Context, db *sql.DB, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	where := `WHERE ($1 = '' OR channel = $1) AND ($2::bigint IS NULL OR category_id = $2)`

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products `+where,
		filter.Channel, filter.CategoryID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products ` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := db.QueryContext(ctx, query, filter.Channel, filter.CategoryID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
