package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
)

const userColumns = `id, email, name, password_hash, phone, is_admin, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var phone sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&phone,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	return u, nil
}

func CreateUser(ctx context.Context, db *sql.DB, email, name, passwordHash, phone string) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash, phone, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, email, name, passwordHash, phone))
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return nil, database.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func ListUsers(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, pageSize), nil
}

// ListAdmins returns every user flagged admin, resolved at call time. The
// dispatcher uses this for the admin recipient set rather than a static
// configuration.
func ListAdmins(ctx context.Context, db *sql.DB) ([]models.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_admin ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return admins, nil
}

// SetAdmin flips a user's admin flag. Self-lockout prevention lives at the
// handler, where the acting principal is known; this is the plain write.
func SetAdmin(ctx context.Context, db *sql.DB, id int64, admin bool) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		`UPDATE users SET is_admin = $1, updated_at = NOW() WHERE id = $2
		 RETURNING `+userColumns,
		admin, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("set admin: %w", err)
	}
	return user, nil
}

func UpdateUserContact(ctx context.Context, db *sql.DB, id int64, name, phone string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		`UPDATE users SET name = $1, phone = $2, updated_at = NOW() WHERE id = $3
		 RETURNING `+userColumns,
		name, phone, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user contact: %w", err)
	}
	return user, nil
}

func UpdatePassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrUserNotFound
	}
	return nil
}

func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrUserNotFound
	}
	return nil
}

func AddFavorite(ctx context.Context, db *sql.DB, userID, productID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_favorites (user_id, product_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, productID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrProductNotFound
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func RemoveFavorite(ctx context.Context, db *sql.DB, userID, productID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func ListFavorites(ctx context.Context, db *sql.DB, userID int64) ([]int64, error) {
	var ids []int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(product_id ORDER BY product_id), '{}')
		 FROM user_favorites WHERE user_id = $1`,
		userID).Scan(pq.Array(&ids))
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return ids, nil
}

// CreatePasswordReset issues a single-use token valid for ttl.
func CreatePasswordReset(ctx context.Context, db *sql.DB, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at, used)
		 VALUES ($1, $2, $3, FALSE)`,
		token, userID, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}
	return token, nil
}

// ConsumePasswordReset marks a live token used and returns its user. The
// mark is conditional on the token being unused and unexpired, so a token
// can only ever be redeemed once.
func ConsumePasswordReset(ctx context.Context, db *sql.DB, token string) (int64, error) {
	var userID int64
	err := db.QueryRowContext(ctx,
		`UPDATE password_resets
		 SET used = TRUE
		 WHERE token = $1 AND NOT used AND expires_at > NOW()
		 RETURNING user_id`,
		token).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, database.ErrResetTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("consume password reset: %w", err)
	}
	return userID, nil
}
