package strikes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisStrikesPrefix     = "strikes/"
	redisPunishedPrefix    = "punished/"
	redisPunishmentsPrefix = "punishments/"
	redisTempMutesKey      = "tempmutes"
	redisTempBansKey       = "tempbans"
)

// RedisStore keeps the ledger in redis: strike totals and punishment
// watermarks as per-guild hashes, pending temporary punishments as sorted
// sets scored by expiry (score zero means permanent).
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

func (s *RedisStore) AddStrikes(ctx context.Context, guildID, userID string, amount int) (int, error) {
	v, err := s.Client.HIncrBy(ctx, redisStrikesPrefix+guildID, userID, int64(amount)).Result()
	return int(v), err
}

func (s *RedisStore) GetStrikes(ctx context.Context, guildID, userID string) (int, error) {
	v, err := s.Client.HGet(ctx, redisStrikesPrefix+guildID, userID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (s *RedisStore) RemoveStrikes(ctx context.Context, guildID, userID string, amount int) (int, error) {
	v, err := s.Client.HIncrBy(ctx, redisStrikesPrefix+guildID, userID, int64(-amount)).Result()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		// clamp; a concurrent pardon can briefly drive the field negative
		if err := s.Client.HSet(ctx, redisStrikesPrefix+guildID, userID, 0).Err(); err != nil {
			return 0, err
		}
		v = 0
	}
	return int(v), nil
}

func (s *RedisStore) LastPunished(ctx context.Context, guildID, userID string) (int, error) {
	v, err := s.Client.HGet(ctx, redisPunishedPrefix+guildID, userID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (s *RedisStore) SetLastPunished(ctx context.Context, guildID, userID string, numStrikes int) error {
	return s.Client.HSet(ctx, redisPunishedPrefix+guildID, userID, numStrikes).Err()
}

func (s *RedisStore) GetPunishments(ctx context.Context, guildID string) ([]Punishment, error) {
	raw, err := s.Client.Get(ctx, redisPunishmentsPrefix+guildID).Bytes()
	if err == redis.Nil {
		return DefaultPunishments, nil
	} else if err != nil {
		return nil, err
	}
	var out []Punishment
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing guild punishments: %w", err)
	}
	return out, nil
}

func (s *RedisStore) storePunishments(ctx context.Context, guildID string, ps []Punishment) error {
	raw, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisPunishmentsPrefix+guildID, raw, 0).Err()
}

func (s *RedisStore) SetPunishment(ctx context.Context, guildID string, p Punishment) error {
	ps, err := s.GetPunishments(ctx, guildID)
	if err != nil {
		return err
	}
	replaced := false
	for i := range ps {
		if ps[i].NumStrikes == p.NumStrikes {
			ps[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		ps = append(ps, p)
		for i := len(ps) - 1; i > 0 && ps[i].NumStrikes < ps[i-1].NumStrikes; i-- {
			ps[i], ps[i-1] = ps[i-1], ps[i]
		}
	}
	return s.storePunishments(ctx, guildID, ps)
}

func (s *RedisStore) RemovePunishment(ctx context.Context, guildID string, numStrikes int) error {
	ps, err := s.GetPunishments(ctx, guildID)
	if err != nil {
		return err
	}
	for i := range ps {
		if ps[i].NumStrikes == numStrikes {
			return s.storePunishments(ctx, guildID, append(ps[:i], ps[i+1:]...))
		}
	}
	return nil
}

func expiryMember(t Target) string {
	return t.GuildID + "|" + t.UserID
}

func expiryScore(until time.Time) float64 {
	if until.IsZero() {
		return 0
	}
	return float64(until.Unix())
}

func (s *RedisStore) setExpiry(ctx context.Context, key string, t Target, until time.Time) error {
	return s.Client.ZAdd(ctx, key, redis.Z{Score: expiryScore(until), Member: expiryMember(t)}).Err()
}

func (s *RedisStore) clearExpiry(ctx context.Context, key string, t Target, until time.Time) error {
	score, err := s.Client.ZScore(ctx, key, expiryMember(t)).Result()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		return err
	}
	if score != expiryScore(until) {
		// entry was replaced since the sweep started; leave it
		return nil
	}
	return s.Client.ZRem(ctx, key, expiryMember(t)).Err()
}

func (s *RedisStore) expired(ctx context.Context, key string, now time.Time) ([]Expiry, error) {
	zs, err := s.Client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: "(0", // exclude permanent entries
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Expiry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		parts := strings.SplitN(member, "|", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, Expiry{
			Target: Target{GuildID: parts[0], UserID: parts[1]},
			Until:  time.Unix(int64(z.Score), 0),
		})
	}
	return out, nil
}

func (s *RedisStore) SetMuteExpiry(ctx context.Context, t Target, until time.Time) error {
	return s.setExpiry(ctx, redisTempMutesKey, t, until)
}

func (s *RedisStore) IsMuted(ctx context.Context, t Target, now time.Time) (bool, error) {
	score, err := s.Client.ZScore(ctx, redisTempMutesKey, expiryMember(t)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return score == 0 || int64(score) > now.Unix(), nil
}

func (s *RedisStore) ClearMuteExpiry(ctx context.Context, t Target, until time.Time) error {
	return s.clearExpiry(ctx, redisTempMutesKey, t, until)
}

func (s *RedisStore) ExpiredMutes(ctx context.Context, now time.Time) ([]Expiry, error) {
	return s.expired(ctx, redisTempMutesKey, now)
}

func (s *RedisStore) SetBanExpiry(ctx context.Context, t Target, until time.Time) error {
	return s.setExpiry(ctx, redisTempBansKey, t, until)
}

func (s *RedisStore) ClearBanExpiry(ctx context.Context, t Target, until time.Time) error {
	return s.clearExpiry(ctx, redisTempBansKey, t, until)
}

func (s *RedisStore) ExpiredBans(ctx context.Context, now time.Time) ([]Expiry, error) {
	return s.expired(ctx, redisTempBansKey, now)
}
