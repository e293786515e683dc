package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/safar/go-shop-api/internal/database"
	"go.uber.org/zap"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Code: code, Error: message})
}

// errorStatus maps the store's sentinel errors to HTTP codes. Anything not on
// the list is an internal failure and gets logged with its cause.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{database.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{database.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{database.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{database.ErrReviewNotFound, http.StatusNotFound, "REVIEW_NOT_FOUND"},
	{database.ErrCategoryNotFound, http.StatusNotFound, "CATEGORY_NOT_FOUND"},
	{database.ErrBannerNotFound, http.StatusNotFound, "BANNER_NOT_FOUND"},

	{database.ErrInsufficientStock, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
	{database.ErrReasonTooShort, http.StatusBadRequest, "REASON_TOO_SHORT"},
	{database.ErrSelfLockout, http.StatusBadRequest, "SELF_LOCKOUT"},
	{database.ErrResetTokenInvalid, http.StatusBadRequest, "RESET_TOKEN_INVALID"},

	{database.ErrAlreadyCanceled, http.StatusConflict, "ALREADY_CANCELED"},
	{database.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{database.ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
	{database.ErrDuplicateCategory, http.StatusConflict, "DUPLICATE_CATEGORY"},
	{database.ErrDuplicateReview, http.StatusConflict, "DUPLICATE_REVIEW"},
	{database.ErrCategoryInUse, http.StatusConflict, "CATEGORY_IN_USE"},
	{database.ErrProductInUse, http.StatusConflict, "PRODUCT_IN_USE"},
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			h.writeErrorMessage(w, m.status, m.code, m.err.Error())
			return
		}
	}
	h.logger.Error("request failed", zap.Error(err))
	h.writeErrorMessage(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

// decode parses the JSON body into dst and runs struct validation. On failure
// it writes the 400 response itself and reports false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeErrorMessage(w, http.StatusBadRequest, "BAD_JSON", "request body is not valid JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.writeErrorMessage(w, http.StatusBadRequest, "VALIDATION",
				"invalid field: "+verrs[0].Field())
			return false
		}
		h.writeErrorMessage(w, http.StatusBadRequest, "VALIDATION", "invalid request")
		return false
	}
	return true
}

// idParam reads a positive integer URL parameter. A zero return means the
// 400 response has already been written.
func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeErrorMessage(w, http.StatusBadRequest, "BAD_ID", "invalid "+name)
		return 0
	}
	return id
}

func queryInt(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
