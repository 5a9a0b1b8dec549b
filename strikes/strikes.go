// Package strikes is the single authority translating accumulated
// disciplinary points into punishment actions. Detectors and operator
// commands both feed it through Handler.ApplyStrikes; nothing else mutates
// the ledger.
package strikes

import (
	"context"
	"time"
)

type Action string

const (
	ActionMute     Action = "mute"
	ActionTempMute Action = "tempmute"
	ActionKick     Action = "kick"
	ActionTempBan  Action = "tempban"
	ActionBan      Action = "ban"
)

// Punishment maps a cumulative strike threshold to an action. Duration is
// only meaningful for the temporary actions.
type Punishment struct {
	NumStrikes int           `json:"num_strikes"`
	Action     Action        `json:"action"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// DefaultPunishments is used for guilds with no configured ladder.
var DefaultPunishments = []Punishment{
	{NumStrikes: 3, Action: ActionMute},
	{NumStrikes: 5, Action: ActionTempBan, Duration: 24 * time.Hour},
	{NumStrikes: 7, Action: ActionBan},
}

type Target struct {
	GuildID string
	UserID  string
}

// Expiry is a pending temporary-punishment reversal.
type Expiry struct {
	Target
	Until time.Time
}

// Store is the strike ledger. AddStrikes must be atomic; an amount of zero
// returns the current total unchanged. LastPunished tracks the highest
// threshold already executed for a user, so a jump across several
// thresholds fires punishments one call at a time.
type Store interface {
	AddStrikes(ctx context.Context, guildID, userID string, amount int) (int, error)
	GetStrikes(ctx context.Context, guildID, userID string) (int, error)
	// RemoveStrikes floors at zero and returns the new total.
	RemoveStrikes(ctx context.Context, guildID, userID string, amount int) (int, error)

	LastPunished(ctx context.Context, guildID, userID string) (int, error)
	SetLastPunished(ctx context.Context, guildID, userID string, numStrikes int) error

	GetPunishments(ctx context.Context, guildID string) ([]Punishment, error)
	SetPunishment(ctx context.Context, guildID string, p Punishment) error
	RemovePunishment(ctx context.Context, guildID string, numStrikes int) error

	// Temporary punishment bookkeeping. A zero Until means permanent (never
	// swept). ClearMuteExpiry/ClearBanExpiry only clear when the stored
	// expiry matches the supplied one, so overlapping sweeps are no-ops.
	SetMuteExpiry(ctx context.Context, t Target, until time.Time) error
	IsMuted(ctx context.Context, t Target, now time.Time) (bool, error)
	ClearMuteExpiry(ctx context.Context, t Target, until time.Time) error
	ExpiredMutes(ctx context.Context, now time.Time) ([]Expiry, error)

	SetBanExpiry(ctx context.Context, t Target, until time.Time) error
	ClearBanExpiry(ctx context.Context, t Target, until time.Time) error
	ExpiredBans(ctx context.Context, now time.Time) ([]Expiry, error)
}

// Actions are the platform mutations punishments need. All of them are
// treated as best-effort by callers; errors are logged and swallowed.
type Actions interface {
	ResolveUser(ctx context.Context, userID string) bool
	ApplyMuteRole(ctx context.Context, guildID, userID, reason string) error
	RemoveMuteRole(ctx context.Context, guildID, userID, reason string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string) error
	UnbanMember(ctx context.Context, guildID, userID, reason string) error
}
