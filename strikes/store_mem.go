package strikes

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemStore struct {
	mu           sync.Mutex
	strikes      map[Target]int
	lastPunished map[Target]int
	punishments  map[string][]Punishment
	mutes        map[Target]time.Time
	bans         map[Target]time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		strikes:      make(map[Target]int),
		lastPunished: make(map[Target]int),
		punishments:  make(map[string][]Punishment),
		mutes:        make(map[Target]time.Time),
		bans:         make(map[Target]time.Time),
	}
}

func (s *MemStore) AddStrikes(ctx context.Context, guildID, userID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Target{guildID, userID}
	s.strikes[t] += amount
	return s.strikes[t], nil
}

func (s *MemStore) GetStrikes(ctx context.Context, guildID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strikes[Target{guildID, userID}], nil
}

func (s *MemStore) RemoveStrikes(ctx context.Context, guildID, userID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Target{guildID, userID}
	v := s.strikes[t] - amount
	if v < 0 {
		v = 0
	}
	s.strikes[t] = v
	return v, nil
}

func (s *MemStore) LastPunished(ctx context.Context, guildID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPunished[Target{guildID, userID}], nil
}

func (s *MemStore) SetLastPunished(ctx context.Context, guildID, userID string, numStrikes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPunished[Target{guildID, userID}] = numStrikes
	return nil
}

func (s *MemStore) GetPunishments(ctx context.Context, guildID string) ([]Punishment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.punishments[guildID]
	if !ok {
		return DefaultPunishments, nil
	}
	out := make([]Punishment, len(ps))
	copy(out, ps)
	return out, nil
}

func (s *MemStore) SetPunishment(ctx context.Context, guildID string, p Punishment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.punishments[guildID]
	for i := range ps {
		if ps[i].NumStrikes == p.NumStrikes {
			ps[i] = p
			s.punishments[guildID] = ps
			return nil
		}
	}
	ps = append(ps, p)
	sort.Slice(ps, func(i, j int) bool { return ps[i].NumStrikes < ps[j].NumStrikes })
	s.punishments[guildID] = ps
	return nil
}

func (s *MemStore) RemovePunishment(ctx context.Context, guildID string, numStrikes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.punishments[guildID]
	for i := range ps {
		if ps[i].NumStrikes == numStrikes {
			s.punishments[guildID] = append(ps[:i], ps[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemStore) SetMuteExpiry(ctx context.Context, t Target, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutes[t] = until
	return nil
}

func (s *MemStore) IsMuted(ctx context.Context, t Target, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.mutes[t]
	if !ok {
		return false, nil
	}
	return until.IsZero() || until.After(now), nil
}

func (s *MemStore) ClearMuteExpiry(ctx context.Context, t Target, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.mutes[t]; ok && cur.Equal(until) {
		delete(s.mutes, t)
	}
	return nil
}

func (s *MemStore) ExpiredMutes(ctx context.Context, now time.Time) ([]Expiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Expiry
	for t, until := range s.mutes {
		if !until.IsZero() && !until.After(now) {
			out = append(out, Expiry{Target: t, Until: until})
		}
	}
	return out, nil
}

func (s *MemStore) SetBanExpiry(ctx context.Context, t Target, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[t] = until
	return nil
}

func (s *MemStore) ClearBanExpiry(ctx context.Context, t Target, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.bans[t]; ok && cur.Equal(until) {
		delete(s.bans, t)
	}
	return nil
}

func (s *MemStore) ExpiredBans(ctx context.Context, now time.Time) ([]Expiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Expiry
	for t, until := range s.bans {
		if !until.IsZero() && !until.After(now) {
			out = append(out, Expiry{Target: t, Until: until})
		}
	}
	return out, nil
}
