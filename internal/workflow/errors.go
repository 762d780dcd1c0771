package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrPriceMissing     = errors.New("price missing")
	ErrAnalysis         = errors.New("analysis failed")
	ErrAnalysisInFlight = errors.New("analysis already in progress")
	ErrApproval         = errors.New("approval failed")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
)

// PriceMissingError reports selected items whose buffered price is blank or
// not a positive number. It matches both ErrPriceMissing and ErrValidation.
type PriceMissingError struct {
	ItemNumbers []int
}

func (e *PriceMissingError) Error() string {
	nums := make([]string, len(e.ItemNumbers))
	for i, n := range e.ItemNumbers {
		nums[i] = fmt.Sprintf("#%d", n)
	}
	return fmt.Sprintf("%s: enter a positive price for item(s) %s", ErrPriceMissing, strings.Join(nums, ", "))
}

func (e *PriceMissingError) Is(target error) bool {
	return target == ErrPriceMissing || target == ErrValidation
}

// Wrap tags err with one of the sentinel markers above so callers can classify
// it with errors.Is. operation and message are optional context.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classified reports whether err already carries one of the markers above.
func Classified(err error) bool {
	for _, m := range []error{ErrValidation, ErrAnalysis, ErrAnalysisInFlight, ErrApproval, ErrConflict, ErrNotFound} {
		if errors.Is(err, m) {
			return true
		}
	}
	return false
}

// Validation builds an ErrValidation error with a user-facing message.
func Validation(operation, message string) error {
	return Wrap(ErrValidation, operation, message, nil)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "workflow failure"
	}
	return strings.Join(parts, ": ")
}
