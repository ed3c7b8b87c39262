package session

import "errors"

var (
	// ErrConnectionRejected is returned when the user declines the wallet
	// connection. The session stays disconnected; the user may retry by
	// invoking Connect again.
	ErrConnectionRejected = errors.New("wallet connection rejected")
)
