package auth

import "context"

// Identity is the resolved result of bearer-token verification.
type Identity struct {
	UserID string
}

// Verifier maps an opaque bearer token to an identity. Implementations
// may call out to a remote service; callers bound the wait with a context
// deadline.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
