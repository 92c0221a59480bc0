package carve

import "sync/atomic"

// CancellationToken is a cooperative stop signal shared by every session
// of a run. Sessions poll it between chunk reads; setting it never
// interrupts a read or write in progress.
type CancellationToken struct {
	cancelled atomic.Bool
}

// NewCancellationToken returns an unset token.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

// Cancel sets the token. Calling it more than once is harmless.
func (t *CancellationToken) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called. A nil token is never cancelled.
func (t *CancellationToken) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}
