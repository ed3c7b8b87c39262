package registry

import "errors"

var (
	// ErrReadFailure is returned when a contract read fails at the RPC
	// layer. Reads are independent; one failing must not block the rest.
	ErrReadFailure = errors.New("contract read failed")

	// ErrNotSigner is returned when a write operation is invoked on a
	// handle bound to a plain provider. This is a caller bug, not a
	// runtime condition.
	ErrNotSigner = errors.New("handle is not bound to a signer")
)
