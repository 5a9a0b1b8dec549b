package settings

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore wraps a Store with a read-through cache for the automod
// settings snapshot, which is fetched once per processed event. Writes
// invalidate the cached entry so the next evaluation sees fresh settings.
// Raid mode and ignore checks pass through uncached: raid state must be
// observed promptly on the join path.
type CachedStore struct {
	Inner Store

	automod *expirable.LRU[string, Automod]
}

func NewCachedStore(inner Store, capacity int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Inner:   inner,
		automod: expirable.NewLRU[string, Automod](capacity, nil, ttl),
	}
}

func (s *CachedStore) GetAutomod(ctx context.Context, guildID string) (Automod, error) {
	if v, ok := s.automod.Get(guildID); ok {
		return v, nil
	}
	v, err := s.Inner.GetAutomod(ctx, guildID)
	if err != nil {
		return Automod{}, err
	}
	s.automod.Add(guildID, v)
	return v, nil
}

func (s *CachedStore) SetAutomod(ctx context.Context, guildID string, a Automod) error {
	s.automod.Remove(guildID)
	return s.Inner.SetAutomod(ctx, guildID, a)
}

func (s *CachedStore) IsInRaidMode(ctx context.Context, guildID string) (bool, error) {
	return s.Inner.IsInRaidMode(ctx, guildID)
}

func (s *CachedStore) EnableRaidMode(ctx context.Context, guildID string, prevVerification int) error {
	return s.Inner.EnableRaidMode(ctx, guildID, prevVerification)
}

func (s *CachedStore) DisableRaidMode(ctx context.Context, guildID string) (int, error) {
	return s.Inner.DisableRaidMode(ctx, guildID)
}

func (s *CachedStore) IsIgnoredChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	return s.Inner.IsIgnoredChannel(ctx, guildID, channelID)
}

func (s *CachedStore) IsIgnoredMember(ctx context.Context, guildID, userID string) (bool, error) {
	return s.Inner.IsIgnoredMember(ctx, guildID, userID)
}

func (s *CachedStore) SetIgnoredChannel(ctx context.Context, guildID, channelID string, ignored bool) error {
	return s.Inner.SetIgnoredChannel(ctx, guildID, channelID, ignored)
}

func (s *CachedStore) SetIgnoredMember(ctx context.Context, guildID, userID string, ignored bool) error {
	return s.Inner.SetIgnoredMember(ctx, guildID, userID, ignored)
}
