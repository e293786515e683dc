package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally restricted to a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsForeignKeyViolation reports whether err is a foreign-key violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrBannerNotFound   = errors.New("banner not found")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyCanceled   = errors.New("order already canceled")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrReasonTooShort    = errors.New("cancellation reason too short")

	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrDuplicateReview   = errors.New("review already exists for this product")
	ErrCategoryInUse     = errors.New("category is referenced by products")
	ErrProductInUse      = errors.New("product is referenced by orders")
	ErrSelfLockout       = errors.New("admins cannot revoke or delete their own account")

	ErrResetTokenInvalid = errors.New("password reset token invalid or expired")
)
