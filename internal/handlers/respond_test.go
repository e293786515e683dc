package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler() *Handler {
	return &Handler{
		logger:   zap.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"product not found", database.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"order not found", database.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"insufficient stock", database.ErrInsufficientStock, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"reason too short", database.ErrReasonTooShort, http.StatusBadRequest, "REASON_TOO_SHORT"},
		{"self lockout", database.ErrSelfLockout, http.StatusBadRequest, "SELF_LOCKOUT"},
		{"already canceled", database.ErrAlreadyCanceled, http.StatusConflict, "ALREADY_CANCELED"},
		{"invalid transition", database.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"duplicate email", database.ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
		{"duplicate review", database.ErrDuplicateReview, http.StatusConflict, "DUPLICATE_REVIEW"},
		{"category in use", database.ErrCategoryInUse, http.StatusConflict, "CATEGORY_IN_USE"},
		{"wrapped sentinel", errors.Join(errors.New("context"), database.ErrBannerNotFound), http.StatusNotFound, "BANNER_NOT_FOUND"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	h := newTestHandler()
	rec := httptest.NewRecorder()
	h.writeError(rec, errors.New("pq: secret table does not exist"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret table")
}

func TestDecodeRejectsBadJSON(t *testing.T) {
	h := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var cmd loginCommand
	ok := h.decode(rec, req, &cmd)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_JSON")
}

func TestDecodeValidates(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"email":"a@b.example","password":"secretpass"}`, true},
		{"missing password", `{"email":"a@b.example"}`, false},
		{"bad email", `{"email":"nope","password":"secretpass"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var cmd loginCommand
			assert.Equal(t, tt.ok, h.decode(rec, req, &cmd))
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestRegisterCommandValidation(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"email":"a@b.example","name":"Ada","password":"longenough"}`, true},
		{"valid with phone", `{"email":"a@b.example","name":"Ada","password":"longenough","phone":"+15550001111"}`, true},
		{"short password", `{"email":"a@b.example","name":"Ada","password":"short"}`, false},
		{"bad phone", `{"email":"a@b.example","name":"Ada","password":"longenough","phone":"555"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var cmd registerCommand
			assert.Equal(t, tt.ok, h.decode(rec, req, &cmd))
		})
	}
}

func TestCreateOrderCommandValidation(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"address":"1 Main Street","items":[{"product_id":1,"quantity":2}]}`, true},
		{"no items", `{"address":"1 Main Street","items":[]}`, false},
		{"zero quantity", `{"address":"1 Main Street","items":[{"product_id":1,"quantity":0}]}`, false},
		{"missing address", `{"items":[{"product_id":1,"quantity":1}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var cmd createOrderCommand
			assert.Equal(t, tt.ok, h.decode(rec, req, &cmd))
		})
	}
}
