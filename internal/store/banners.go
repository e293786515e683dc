package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
)

const bannerColumns = `id, title, image_url, link_url, active, position, created_at`

func scanBanner(row rowScanner) (*models.Banner, error) {
	b := &models.Banner{}
	var link sql.NullString
	err := row.Scan(&b.ID, &b.Title, &b.ImageURL, &link, &b.Active, &b.Position, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.LinkURL = link.String
	return b, nil
}

type BannerRequest struct {
	Title    string
	ImageURL string
	LinkURL  string
	Active   bool
	Position int
}

func CreateBanner(ctx context.Context, db *sql.DB, req BannerRequest) (*models.Banner, error) {
	banner, err := scanBanner(db.QueryRowContext(ctx,
		`INSERT INTO banners (title, image_url, link_url, active, position, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING `+bannerColumns,
		req.Title, req.ImageURL, req.LinkURL, req.Active, req.Position))
	if err != nil {
		return nil, fmt.Errorf("create banner: %w", err)
	}
	return banner, nil
}

func UpdateBanner(ctx context.Context, db *sql.DB, id int64, req BannerRequest) (*models.Banner, error) {
	banner, err := scanBanner(db.QueryRowContext(ctx,
		`UPDATE banners
		 SET title = $1, image_url = $2, link_url = $3, active = $4, position = $5
		 WHERE id = $6
		 RETURNING `+bannerColumns,
		req.Title, req.ImageURL, req.LinkURL, req.Active, req.Position, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBannerNotFound
		}
		return nil, fmt.Errorf("update banner: %w", err)
	}
	return banner, nil
}

// ListBanners returns banners in display order; activeOnly is the public
// storefront view.
func ListBanners(ctx context.Context, db *sql.DB, activeOnly bool) ([]models.Banner, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bannerColumns+` FROM banners
		 WHERE NOT $1 OR active
		 ORDER BY position, id`,
		activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()

	var banners []models.Banner
	for rows.Next() {
		banner, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, *banner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return banners, nil
}

func DeleteBanner(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrBannerNotFound
	}
	return nil
}
