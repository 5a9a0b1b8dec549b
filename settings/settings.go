// Package settings holds per-guild moderation configuration: detector
// thresholds and strike weights, channel/member ignore lists, and the raid
// mode flag. Stores are read-heavy; a read-through cache wrapper is provided
// for the hot event path.
package settings

import (
	"context"
)

// Feature gates: a threshold below the minimum disables the check entirely.
const (
	MentionMinimum     = 2
	RoleMentionMinimum = 1
)

// Automod is the per-guild detector configuration. The zero value disables
// every check, which is also the behavior for guilds with no stored row.
type Automod struct {
	// duplicate-content thresholds and weight
	DupeDeleteThresh int `json:"dupe_delete_thresh"`
	DupeStrikeThresh int `json:"dupe_strike_thresh"`
	DupeStrikes      int `json:"dupe_strikes"`

	// flood limits
	MaxMentions     int `json:"max_mentions"`
	MaxRoleMentions int `json:"max_role_mentions"`
	MaxLines        int `json:"max_lines"`

	// link and copypasta strike weights
	RefStrikes       int `json:"ref_strikes"`
	InviteStrikes    int `json:"invite_strikes"`
	CopypastaStrikes int `json:"copypasta_strikes"`

	// whether the async redirect-resolution stage is enabled
	ResolveURLs bool `json:"resolve_urls"`

	// auto raid mode: trigger when RaidmodeNumber joins land within
	// RaidmodeTime seconds
	RaidmodeNumber int `json:"raidmode_number"`
	RaidmodeTime   int `json:"raidmode_time"`
}

func (s Automod) UseAntiDuplicate() bool {
	return s.DupeDeleteThresh > 0
}

func (s Automod) UseAutoRaidMode() bool {
	return s.RaidmodeNumber > 1 && s.RaidmodeTime > 1
}

// Store is the guild-configuration collaborator. Implementations must treat
// a missing guild as the zero value, not an error.
type Store interface {
	GetAutomod(ctx context.Context, guildID string) (Automod, error)
	SetAutomod(ctx context.Context, guildID string, s Automod) error

	IsInRaidMode(ctx context.Context, guildID string) (bool, error)
	// EnableRaidMode records the guild's pre-raid verification level so
	// DisableRaidMode can restore it.
	EnableRaidMode(ctx context.Context, guildID string, prevVerification int) error
	DisableRaidMode(ctx context.Context, guildID string) (prevVerification int, err error)

	IsIgnoredChannel(ctx context.Context, guildID, channelID string) (bool, error)
	IsIgnoredMember(ctx context.Context, guildID, userID string) (bool, error)
	SetIgnoredChannel(ctx context.Context, guildID, channelID string, ignored bool) error
	SetIgnoredMember(ctx context.Context, guildID, userID string, ignored bool) error
}
