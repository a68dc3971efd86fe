package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラー種別。callerはHTTPステータスではなくこれで分岐できる。
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
	CodeInvalidSignature  ErrorCode = "INVALID_SIGNATURE"
	CodeAmountMismatch    ErrorCode = "AMOUNT_MISMATCH"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeDBError           ErrorCode = "DB_ERROR"
)

type HTTPError struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code ErrorCode, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func newValidationError(message string) error {
	return NewHTTPError(http.StatusBadRequest, CodeValidation, message)
}

func newInvalidTransition(from, to string) error {
	return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition,
		fmt.Sprintf("cannot transition from %s to %s", from, to))
}

// 在庫不足。残数をメッセージに含める。
func newInsufficientStock(available int64) error {
	return NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: %d available", available))
}

// 所有チェック失敗も「存在しない」扱いにする（存在の漏洩防止）
func newNotFound() error {
	return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
}

func newConflict(message string) error {
	return NewHTTPError(http.StatusConflict, CodeConflict, message)
}

func newUnauthorized() error {
	return NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
}

func newDBError() error {
	return NewHTTPError(http.StatusInternalServerError, CodeDBError, "db error")
}
