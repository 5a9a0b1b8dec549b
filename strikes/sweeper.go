package strikes

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper reverts expired temporary punishments. The ban sweep and the mute
// sweep are independent periodic tasks; both are idempotent, so overlapping
// runs (or a sweep racing a manual unmute) are no-ops.
type Sweeper struct {
	Logger   *slog.Logger
	Store    Store
	Actions  Actions
	Interval time.Duration

	// injected clock for tests; defaults to time.Now
	Now func() time.Time
}

const DefaultSweepInterval = 30 * time.Second

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return DefaultSweepInterval
}

// RunBanSweep blocks until ctx is cancelled, unbanning targets whose
// temporary ban has lapsed.
func (s *Sweeper) RunBanSweep(ctx context.Context) {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepBans(ctx)
		}
	}
}

// RunMuteSweep blocks until ctx is cancelled, unmuting targets whose
// temporary mute has lapsed.
func (s *Sweeper) RunMuteSweep(ctx context.Context) {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepMutes(ctx)
		}
	}
}

func (s *Sweeper) SweepBans(ctx context.Context) {
	now := s.now()
	expired, err := s.Store.ExpiredBans(ctx, now)
	if err != nil {
		s.Logger.Error("failed to list expired bans", "err", err)
		return
	}
	for _, e := range expired {
		if err := s.Actions.UnbanMember(ctx, e.GuildID, e.UserID, "Temporary ban expired"); err != nil {
			s.Logger.Debug("unban failed", "guild", e.GuildID, "user", e.UserID, "err", err)
		}
		if err := s.Store.ClearBanExpiry(ctx, e.Target, e.Until); err != nil {
			s.Logger.Error("failed to clear ban expiry", "guild", e.GuildID, "user", e.UserID, "err", err)
			continue
		}
		sweepRevertCount.WithLabelValues("ban").Inc()
	}
}

func (s *Sweeper) SweepMutes(ctx context.Context) {
	now := s.now()
	expired, err := s.Store.ExpiredMutes(ctx, now)
	if err != nil {
		s.Logger.Error("failed to list expired mutes", "err", err)
		return
	}
	for _, e := range expired {
		if err := s.Actions.RemoveMuteRole(ctx, e.GuildID, e.UserID, "Temporary mute expired"); err != nil {
			s.Logger.Debug("unmute failed", "guild", e.GuildID, "user", e.UserID, "err", err)
		}
		if err := s.Store.ClearMuteExpiry(ctx, e.Target, e.Until); err != nil {
			s.Logger.Error("failed to clear mute expiry", "guild", e.GuildID, "user", e.UserID, "err", err)
			continue
		}
		sweepRevertCount.WithLabelValues("mute").Inc()
	}
}
