// Package resolver holds the external lookup dependencies of the automod
// engine: invite-code resolution, redirect-chain following, and the
// copypasta catalog.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrForbidden is a permission-class resolution failure. Callers are
// expected to swallow it rather than treat it as a detector error.
var ErrForbidden = errors.New("missing permission to resolve invite")

type InviteResolver interface {
	// Resolve maps an invite code to its destination guild ID.
	Resolve(ctx context.Context, code string) (string, error)
}

// InviteFetcher is the uncached platform lookup.
type InviteFetcher interface {
	FetchInvite(ctx context.Context, code string) (string, error)
}

// CachedInviteResolver caches code -> guild mappings. Invite destinations
// are effectively immutable, so a generous TTL is fine.
type CachedInviteResolver struct {
	Fetcher InviteFetcher

	cache *expirable.LRU[string, string]
}

func NewCachedInviteResolver(fetcher InviteFetcher, capacity int, ttl time.Duration) *CachedInviteResolver {
	return &CachedInviteResolver{
		Fetcher: fetcher,
		cache:   expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (r *CachedInviteResolver) Resolve(ctx context.Context, code string) (string, error) {
	if guildID, ok := r.cache.Get(code); ok {
		return guildID, nil
	}
	guildID, err := r.Fetcher.FetchInvite(ctx, code)
	if err != nil {
		return "", err
	}
	r.cache.Add(code, guildID)
	return guildID, nil
}
