package client

import "errors"

var (
	// ErrNotConnected is returned when an operation needs a wallet
	// session that has not been established yet.
	ErrNotConnected = errors.New("wallet not connected")
)
