package feed

import "errors"

// Sentinel kinds for feed errors.
var (
	ErrFetch            = errors.New("feed fetch failed")
	ErrUnexpectedStatus = errors.New("unexpected feed status")
)
