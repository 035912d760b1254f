package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
)

var (
	ErrNotFound            = errors.New("not_found")
	ErrForbidden           = errors.New("forbidden")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidState        = errors.New("invalid_state")
	ErrNotEligible         = errors.New("not_eligible")
	ErrAlreadyPosted       = errors.New("already_posted")
	ErrAlreadyReviewed     = errors.New("already_reviewed")
	ErrOrderNotFound       = errors.New("order_not_found")
)

// InsufficientBalanceError carries the figures the client needs to offer a
// top-up. It matches ErrInsufficientBalance under errors.Is.
type InsufficientBalanceError struct {
	Required decimal.Decimal
	Current  decimal.Decimal
	Missing  decimal.Decimal
}

func newInsufficientBalance(required, current decimal.Decimal) *InsufficientBalanceError {
	missing := required.Sub(current)
	if missing.IsNegative() {
		missing = decimal.Zero
	}
	return &InsufficientBalanceError{Required: required, Current: current, Missing: missing}
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %s, current %s", e.Required.String(), e.Current.String())
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// logBestEffort records a failed side effect. Ineligibility is expected and
// stays quiet.
func logBestEffort(ctx context.Context, what string, err error) {
	if err == nil || errors.Is(err, ErrNotEligible) {
		return
	}
	log.Printf("%s%s: %v", reqctx.LogPrefix(ctx), what, err)
}
