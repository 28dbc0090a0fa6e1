package model

import (
	"fmt"
	"strings"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusShipping  Status = "SHIPPING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusShipping:  {},
	StatusShipped:   {},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseStatus normalizes s and rejects blank or unknown values with ErrValidation.
func ParseStatus(s string) (Status, error) {
	norm := Status(strings.ToUpper(strings.TrimSpace(s)))
	if norm == "" {
		return "", fmt.Errorf("status is required: %w", apperrors.ErrValidation)
	}
	if _, ok := knownStatuses[norm]; !ok {
		return "", fmt.Errorf("unknown status %q: %w", s, apperrors.ErrValidation)
	}
	return norm, nil
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CheckTransition returns ErrInvalidState when an order in status from may not move to to.
// Only leaving a terminal state is forbidden.
func CheckTransition(from, to Status) error {
	if from.IsTerminal() {
		return fmt.Errorf("cannot change status of %s order: %w", from, apperrors.ErrInvalidState)
	}
	return nil
}
