// Package apperr defines the error vocabulary shared by every lending
// component. All expected outcomes (out of stock, invalid transition,
// renewal denied) travel as coded errors, not panics.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound               = "NOT_FOUND"
	CodeOutOfStock             = "OUT_OF_STOCK"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeRenewalDenied          = "RENEWAL_DENIED"
	CodeInvariantViolation     = "INVARIANT_VIOLATION"
	CodeActiveLoansExist       = "ACTIVE_LOANS_EXIST"
	CodeInvalidArgument        = "INVALID_ARGUMENT"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL"
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) error           { return New(CodeNotFound, msg) }
func OutOfStock(msg string) error         { return New(CodeOutOfStock, msg) }
func RenewalDenied(msg string) error      { return New(CodeRenewalDenied, msg) }
func ActiveLoansExist(msg string) error   { return New(CodeActiveLoansExist, msg) }
func InvalidArgument(msg string) error    { return New(CodeInvalidArgument, msg) }
func Forbidden(msg string) error          { return New(CodeForbidden, msg) }
func Internal(msg string) error           { return New(CodeInternal, msg) }
func InvariantViolation(msg string) error { return New(CodeInvariantViolation, msg) }

// InvalidTransition names both ends of the attempted state change.
func InvalidTransition(from, to string) error {
	return Newf(CodeInvalidTransition, "cannot transition from %s to %s", from, to)
}

// ConcurrentModification signals a lost compare-and-swap race. The caller
// re-fetches and retries; the core never retries on its own.
func ConcurrentModification(msg string) error {
	return New(CodeConcurrentModification, msg)
}

// Code extracts the machine-readable code, or CodeInternal for plain errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func Is(err error, code string) bool {
	return Code(err) == code
}

// ErrorBody is the JSON shape handlers respond with on failure.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Body builds the response body for err. Internal details are not leaked.
func Body(err error) ErrorBody {
	var e *Error
	if errors.As(err, &e) {
		return ErrorBody{Error: ErrorPayload{Code: e.Code, Message: e.Message}}
	}
	return ErrorBody{Error: ErrorPayload{Code: CodeInternal, Message: "internal error"}}
}

// HTTPStatus maps an error to the status the glue layer responds with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeOutOfStock, CodeInvalidTransition, CodeRenewalDenied, CodeActiveLoansExist:
		return http.StatusConflict
	case CodeConcurrentModification:
		return http.StatusConflict
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
