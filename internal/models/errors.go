package models

import (
	"errors"
	"fmt"
	"strings"
)

// SeatUnavailableError is returned when a hold request loses the race for
// one or more of its seats. Conflicts counts seats that could not be held;
// which passenger holds them is deliberately not disclosed.
type SeatUnavailableError struct {
	Requested int
	Conflicts int
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("%d of %d requested seats are no longer available", e.Conflicts, e.Requested)
}

// NotFoundError is returned when a referenced record does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// GatewayError wraps a payment gateway failure so transport and handler
// layers can distinguish it from local faults
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// PartialReconciliationWarning records non-fatal step failures during a
// confirmation pass. The confirmation itself still succeeds; the failed
// steps are retried by later status checks or the expiry sweep.
type PartialReconciliationWarning struct {
	BookingID string
	Steps     []string
}

func (e *PartialReconciliationWarning) Error() string {
	return fmt.Sprintf("booking %s confirmed with incomplete reconciliation: %s", e.BookingID, strings.Join(e.Steps, "; "))
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsSeatUnavailable reports whether err is a SeatUnavailableError
func IsSeatUnavailable(err error) bool {
	var su *SeatUnavailableError
	return errors.As(err, &su)
}

// IsGatewayError reports whether err is a GatewayError
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
