package settings

import (
	"context"
	"sync"
)

type raidState struct {
	active           bool
	prevVerification int
}

type MemStore struct {
	mu       sync.RWMutex
	automod  map[string]Automod
	raid     map[string]raidState
	channels map[string]bool
	members  map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		automod:  make(map[string]Automod),
		raid:     make(map[string]raidState),
		channels: make(map[string]bool),
		members:  make(map[string]bool),
	}
}

func (s *MemStore) GetAutomod(ctx context.Context, guildID string) (Automod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.automod[guildID], nil
}

func (s *MemStore) SetAutomod(ctx context.Context, guildID string, a Automod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automod[guildID] = a
	return nil
}

func (s *MemStore) IsInRaidMode(ctx context.Context, guildID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raid[guildID].active, nil
}

func (s *MemStore) EnableRaidMode(ctx context.Context, guildID string, prevVerification int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raid[guildID] = raidState{active: true, prevVerification: prevVerification}
	return nil
}

func (s *MemStore) DisableRaidMode(ctx context.Context, guildID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.raid[guildID]
	s.raid[guildID] = raidState{active: false, prevVerification: st.prevVerification}
	return st.prevVerification, nil
}

func (s *MemStore) IsIgnoredChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channels[guildID+"/"+channelID], nil
}

func (s *MemStore) IsIgnoredMember(ctx context.Context, guildID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[guildID+"/"+userID], nil
}

func (s *MemStore) SetIgnoredChannel(ctx context.Context, guildID, channelID string, ignored bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ignored {
		s.channels[guildID+"/"+channelID] = true
	} else {
		delete(s.channels, guildID+"/"+channelID)
	}
	return nil
}

func (s *MemStore) SetIgnoredMember(ctx context.Context, guildID, userID string, ignored bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ignored {
		s.members[guildID+"/"+userID] = true
	} else {
		delete(s.members, guildID+"/"+userID)
	}
	return nil
}
