package bill

import "errors"

// Error taxonomy surfaced to callers. Handlers map these to HTTP statuses;
// none of them is ever retried by the core.
var (
	// ErrNotFound marks a missing bill id, or a person absent from a
	// bill's splits.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a malformed request: empty roster, negative
	// item index, negative tip.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotYetAssigned marks a payment-links request against a bill that
	// has never been assigned.
	ErrNotYetAssigned = errors.New("bill has not been assigned yet")

	// ErrUpstream marks a receipt interpreter failure, with the upstream
	// reason embedded in the wrapping message.
	ErrUpstream = errors.New("receipt interpretation failed")
)
