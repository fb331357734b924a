package download

import "errors"

var (
	// ErrNoData reports a transfer that finished without a single byte
	// written.
	ErrNoData = errors.New("no data transferred")

	// ErrEmptyBody reports a ranged response that arrived with a
	// zero-length body.
	ErrEmptyBody = errors.New("empty response body")

	// ErrDestinationExists reports a complete local copy that will not be
	// replaced without force.
	ErrDestinationExists = errors.New("destination file already exists")
)
