// Package apperror classifies failures of order, stock and status operations
// so transports can map them to response codes without inspecting causes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure class of an operation
type Kind int

const (
	Storage Kind = iota
	Validation
	NotFound
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "storage"
	}
}

// Error carries a kind, a caller-safe message and an optional cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinels
// survive re-wrapping with extra context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// ValidationError represents a field-level request error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

var (
	ErrInsufficientStock = &Error{Kind: Conflict, Message: "insufficient stock"}
	ErrMenuItemNotFound  = &Error{Kind: NotFound, Message: "menu item not found"}
	ErrOrderNotFound     = &Error{Kind: NotFound, Message: "order not found"}
	ErrInvalidStatus     = &Error{Kind: Validation, Message: "invalid status"}
	ErrTotalMismatch     = &Error{Kind: Conflict, Message: "total price mismatch"}
	ErrStatusTransition  = &Error{Kind: Conflict, Message: "status transition not allowed"}
	ErrPriceOverflow     = &Error{Kind: Validation, Message: "order price out of range"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Withf returns a copy of sentinel that keeps matching it under errors.Is
// while carrying extra detail in its cause.
func Withf(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies err. Unknown errors are storage failures.
func KindOf(err error) Kind {
	if err == nil {
		return Storage
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return Validation
	}
	return Storage
}

// Message returns the caller-safe text for err. Storage failures never
// expose driver detail.
func Message(err error) string {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Storage {
		return ae.Message
	}
	return "internal server error"
}

// HTTPStatus maps a kind to a response code
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
