package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrorClassPermanent},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"wrapped serialization", fmt.Errorf("tx: %w", &pq.Error{Code: "40001"}), ErrorClassSerialization},
		{"plain error", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&pq.Error{Code: "40001"}) {
		t.Error("serialization failures are retryable")
	}
	if IsRetryable(&pq.Error{Code: "23505"}) {
		t.Error("unique violations are not retryable")
	}
	if IsRetryable(ErrInsufficientStock) {
		t.Error("domain refusals are not retryable")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	if !IsUniqueViolation(err, "users_email_key") {
		t.Error("matching constraint should be detected")
	}
	if !IsUniqueViolation(err, "") {
		t.Error("empty constraint matches any unique violation")
	}
	if IsUniqueViolation(err, "reviews_product_id_user_id_key") {
		t.Error("other constraints should not match")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Error("non-pq errors should not match")
	}
}
