package auth

import (
	"context"
	"time"
)

// Revoker records token IDs that must no longer be accepted.
//
// Tokens are stateless, so logging out only deletes the browser's cookie. A
// Revoker lets logout also invalidate the token itself until it would have
// expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NopRevoker is used when no revocation store is configured.
type NopRevoker struct{}

func (NopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
