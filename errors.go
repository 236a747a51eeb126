package ccfacade

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/ccfacade/docstore"
)

var (
	// ErrContention is the write-race error of the backing store. Store
	// retries it; once attempts run out it is still in the returned chain.
	ErrContention = docstore.ErrContention

	ErrMissingUPRN = errors.New("ccfacade: uprn is required")
	ErrInvalidUPRN = errors.New("ccfacade: invalid uprn")
)

// WriteError is returned by Store for every failed write. It keeps the
// original error chain, so errors.Is(err, ErrContention) tells a lost race
// from any other failure.
type WriteError struct {
	UPRN     string
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	if errors.Is(e.Err, ErrContention) {
		return fmt.Sprintf("store case %s: still contended after %d attempts: %v", e.UPRN, e.Attempts, e.Err)
	}
	return fmt.Sprintf("store case %s (attempt %d): %v", e.UPRN, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
