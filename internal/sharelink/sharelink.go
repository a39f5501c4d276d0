// Package sharelink declares the boundary to the one-time share-link token
// store: patients mint a short-lived token for a document and hand the link
// to a third party, who redeems it exactly once. The store itself is a
// separate, single-responsibility service; this pipeline only consumes the
// contract.
package sharelink

import (
	"context"
	"time"
)

// TokenStore issues and redeems one-time document share tokens.
// Implementations return sentinel.ErrNotFound for unknown tokens,
// sentinel.ErrExpired past the TTL, and sentinel.ErrAlreadyUsed on a second
// redemption.
type TokenStore interface {
	Issue(ctx context.Context, reportID string, ttl time.Duration) (token string, err error)
	Redeem(ctx context.Context, token string) (reportID string, err error)
}
