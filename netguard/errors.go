package netguard

import "errors"

var (
	// ErrNetworkMismatch is returned when the wallet's active chain is not
	// the chain the registry contract is deployed on.
	ErrNetworkMismatch = errors.New("wrong network active")
)
