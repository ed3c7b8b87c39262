package ethereum

import "errors"

var (
	// ErrTxReverted is returned when a transaction was mined but its
	// execution reverted on-chain.
	ErrTxReverted = errors.New("transaction reverted")
)
