package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind is the machine-readable class of a domain error. Callers translate
// kinds into user-facing text.
type Kind string

const (
	KindValidation            Kind = "VALIDATION"
	KindInsufficientFunds     Kind = "INSUFFICIENT_FUNDS"
	KindInsufficientLiquidity Kind = "INSUFFICIENT_LIQUIDITY"
	KindNotFound              Kind = "NOT_FOUND"
)

// Error carries the kind plus the amounts involved when a balance or the
// book could not cover a request.
type Error struct {
	Kind      Kind
	Message   string
	Required  decimal.Decimal
	Available decimal.Decimal
	Cause     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrInsufficientFunds     = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientLiquidity = &Error{Kind: KindInsufficientLiquidity}
	ErrNotFound              = &Error{Kind: KindNotFound}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InsufficientFunds(what string, required, available decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientFunds,
		Message:   fmt.Sprintf("insufficient %s: required %s, available %s", what, required, available),
		Required:  required,
		Available: available,
	}
}

func InsufficientLiquidity(price int64, required, available decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientLiquidity,
		Message:   fmt.Sprintf("insufficient liquidity at %d: required %s, available %s", price, required, available),
		Required:  required,
		Available: available,
	}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first domain error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
