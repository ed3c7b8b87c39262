package docstore

import "errors"

var (
	// ErrPublishFailure is returned when the document upload fails. The
	// enclosing transaction must not reach the chain.
	ErrPublishFailure = errors.New("document publish failed")
)
