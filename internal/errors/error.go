// Package errors provides the error kinds shared by the cart, checkout and order components.
package errors

import "errors"

// Error kinds. Every component returns one of these (possibly wrapped) at the point of detection.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
)

var ErrDuplicateRequest = errors.New("duplicate request")

var ErrUserNotFound = kind("user not found", ErrNotFound)
var ErrItemNotFound = kind("item not found", ErrNotFound)
var ErrOrderNotFound = kind("order not found", ErrNotFound)
var ErrCartLineNotFound = kind("item not found in cart", ErrNotFound)

var ErrCartEmpty = kind("cart empty", ErrInvalidState)

var ErrStockOverflow = kind("stock would exceed the maximum", ErrInvalidState)

var ErrStatusConflict = kind("order status changed concurrently", ErrInvalidState)

// kindError is a sentinel that also matches the broader kind it belongs to.
type kindError struct {
	msg  string
	kind error
}

func kind(msg string, k error) error {
	return &kindError{msg: msg, kind: k}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
