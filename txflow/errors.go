package txflow

import "errors"

var (
	// ErrTxInFlight is returned when an action is refused because another
	// transaction is still pending.
	ErrTxInFlight = errors.New("another transaction is in flight")

	// ErrMissingInput is returned when a required user input is absent.
	// The action is not attempted and the wallet is not contacted.
	ErrMissingInput = errors.New("required input missing")
)
