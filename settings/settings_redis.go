package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	redisAutomodPrefix  = "automod/"
	redisRaidPrefix     = "raidmode/"
	redisIgnoredPrefix  = "ignored/"
	redisIgnoredChanSet = "/channels"
	redisIgnoredUserSet = "/members"
)

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) GetAutomod(ctx context.Context, guildID string) (Automod, error) {
	var out Automod
	raw, err := s.Client.Get(ctx, redisAutomodPrefix+guildID).Bytes()
	if err == redis.Nil {
		return out, nil
	} else if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Automod{}, fmt.Errorf("parsing guild automod settings: %w", err)
	}
	return out, nil
}

func (s *RedisStore) SetAutomod(ctx context.Context, guildID string, a Automod) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisAutomodPrefix+guildID, raw, 0).Err()
}

type redisRaidState struct {
	Active           bool `json:"active"`
	PrevVerification int  `json:"prev_verification"`
}

func (s *RedisStore) getRaid(ctx context.Context, guildID string) (redisRaidState, error) {
	var st redisRaidState
	raw, err := s.Client.Get(ctx, redisRaidPrefix+guildID).Bytes()
	if err == redis.Nil {
		return st, nil
	} else if err != nil {
		return st, err
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return redisRaidState{}, fmt.Errorf("parsing raid state: %w", err)
	}
	return st, nil
}

func (s *RedisStore) setRaid(ctx context.Context, guildID string, st redisRaidState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisRaidPrefix+guildID, raw, 0).Err()
}

func (s *RedisStore) IsInRaidMode(ctx context.Context, guildID string) (bool, error) {
	st, err := s.getRaid(ctx, guildID)
	return st.Active, err
}

func (s *RedisStore) EnableRaidMode(ctx context.Context, guildID string, prevVerification int) error {
	return s.setRaid(ctx, guildID, redisRaidState{Active: true, PrevVerification: prevVerification})
}

func (s *RedisStore) DisableRaidMode(ctx context.Context, guildID string) (int, error) {
	st, err := s.getRaid(ctx, guildID)
	if err != nil {
		return 0, err
	}
	st.Active = false
	if err := s.setRaid(ctx, guildID, st); err != nil {
		return 0, err
	}
	return st.PrevVerification, nil
}

func (s *RedisStore) IsIgnoredChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	return s.Client.SIsMember(ctx, redisIgnoredPrefix+guildID+redisIgnoredChanSet, channelID).Result()
}

func (s *RedisStore) IsIgnoredMember(ctx context.Context, guildID, userID string) (bool, error) {
	return s.Client.SIsMember(ctx, redisIgnoredPrefix+guildID+redisIgnoredUserSet, userID).Result()
}

func (s *RedisStore) SetIgnoredChannel(ctx context.Context, guildID, channelID string, ignored bool) error {
	key := redisIgnoredPrefix + guildID + redisIgnoredChanSet
	if ignored {
		return s.Client.SAdd(ctx, key, channelID).Err()
	}
	return s.Client.SRem(ctx, key, channelID).Err()
}

func (s *RedisStore) SetIgnoredMember(ctx context.Context, guildID, userID string, ignored bool) error {
	key := redisIgnoredPrefix + guildID + redisIgnoredUserSet
	if ignored {
		return s.Client.SAdd(ctx, key, userID).Err()
	}
	return s.Client.SRem(ctx, key, userID).Err()
}
