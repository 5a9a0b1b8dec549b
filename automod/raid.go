package automod

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// joinWindow is a bounded ring of recent join timestamps for one guild,
// used to evaluate the auto raid mode trigger.
type joinWindow struct {
	mu    sync.Mutex
	times []time.Time
	next  int
	count int
}

const joinWindowCapacity = 100

func newJoinWindow(capacity int) *joinWindow {
	return &joinWindow{times: make([]time.Time, capacity)}
}

func (w *joinWindow) record(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.times[w.next] = t
	w.next = (w.next + 1) % len(w.times)
	if w.count < len(w.times) {
		w.count++
	}
}

func (w *joinWindow) countSince(cutoff time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for i := 0; i < w.count; i++ {
		if !w.times[i].Before(cutoff) {
			n++
		}
	}
	return n
}

func (e *Engine) guildJoinWindow(guildID string) *joinWindow {
	e.joinMu.Lock()
	defer e.joinMu.Unlock()
	if w, ok := e.joinWindows.Get(guildID); ok {
		return w
	}
	w := newJoinWindow(joinWindowCapacity)
	e.joinWindows.Put(guildID, w)
	return w
}

// ProcessJoin evaluates a member join against the guild's raid state. While
// raid mode is active joiners are kicked (with a best-effort DM first);
// otherwise joins feed the auto-trigger window, and rejoining members with
// an active mute get their mute role restored.
func (e *Engine) ProcessJoin(ctx context.Context, evt *JoinEvent) {
	log := e.logger.With("guild", evt.GuildID, "user", evt.UserID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("automod join processing failed", "panic", r)
		}
	}()
	if evt.Bot {
		return
	}

	kicking := false
	inRaid, err := e.settings.IsInRaidMode(ctx, evt.GuildID)
	if err != nil {
		log.Error("failed to load raid state", "err", err)
	}
	cfg, err := e.settings.GetAutomod(ctx, evt.GuildID)
	if err != nil {
		log.Error("failed to load automod settings", "err", err)
	}
	if inRaid {
		last, ok := e.lastJoin.Get(evt.GuildID)
		// only guilds on auto raid mode release automatically; a manual
		// lockdown stays up until a moderator lifts it
		if cfg.UseAutoRaidMode() && ok && evt.JoinedAt.Sub(last) > raidReleaseAfter {
			if err := e.DisableRaidMode(ctx, e.selfID, evt.GuildID, evt.JoinedAt, raidAutoDisable); err != nil {
				log.Error("failed to auto-disable raid mode", "err", err)
			}
		} else if e.actions.CanKick(ctx, evt.GuildID) {
			kicking = true
		}
	} else if cfg.UseAutoRaidMode() {
		w := e.guildJoinWindow(evt.GuildID)
		w.record(evt.JoinedAt)
		cutoff := evt.JoinedAt.Add(-time.Duration(cfg.RaidmodeTime) * time.Second)
		if w.countSince(cutoff) >= cfg.RaidmodeNumber {
			reason := fmt.Sprintf("Maximum join rate exceeded (%d/%ds)", cfg.RaidmodeNumber, cfg.RaidmodeTime)
			if err := e.EnableRaidMode(ctx, e.selfID, evt.GuildID, evt.JoinedAt, reason); err != nil {
				log.Error("failed to enable raid mode", "err", err)
			} else {
				kicking = e.actions.CanKick(ctx, evt.GuildID)
			}
		}
	}
	e.lastJoin.Put(evt.GuildID, evt.JoinedAt)

	if kicking {
		dm := fmt.Sprintf("Sorry, **%s** is currently under lockdown. Please try joining again later. Sorry for the inconvenience.", evt.GuildName)
		if err := e.actions.SendDirectMessage(ctx, evt.UserID, dm); err != nil {
			log.Debug("failed to DM kicked joiner", "err", err)
		}
		if err := e.actions.KickMember(ctx, evt.GuildID, evt.UserID, raidKickReason); err != nil {
			log.Debug("failed to kick joiner", "err", err)
		} else {
			raidKicks.Inc()
		}
		return
	}

	muted, err := e.strikes.IsMuted(ctx, evt.GuildID, evt.UserID, evt.JoinedAt)
	if err != nil {
		log.Error("failed to check mute state", "err", err)
		return
	}
	if muted {
		if err := e.actions.RestoreMuteRole(ctx, evt.GuildID, evt.UserID, RestoreMuteRoleAudit); err != nil {
			log.Debug("failed to restore mute role", "err", err)
		}
	}
}

// EnableRaidMode turns on the guild's lockdown, retaining the current
// verification level so DisableRaidMode can restore it and raising it to at
// least high in the meantime. Enabling an already-active raid mode is a
// no-op.
func (e *Engine) EnableRaidMode(ctx context.Context, moderatorID, guildID string, when time.Time, reason string) error {
	active, err := e.settings.IsInRaidMode(ctx, guildID)
	if err != nil {
		return fmt.Errorf("loading raid state: %w", err)
	}
	if active {
		return nil
	}
	prev, err := e.actions.GetVerificationLevel(ctx, guildID)
	if err != nil {
		e.logger.Debug("failed to read verification level", "guild", guildID, "err", err)
		prev = 0
	}
	if err := e.settings.EnableRaidMode(ctx, guildID, prev); err != nil {
		return fmt.Errorf("enabling raid mode: %w", err)
	}
	if err := e.actions.RaiseVerificationLevel(ctx, guildID, reason); err != nil {
		e.logger.Debug("failed to raise verification level", "guild", guildID, "err", err)
	}
	raidModeTransitions.WithLabelValues("enabled").Inc()
	e.logger.Info("raid mode enabled", "guild", guildID, "moderator", moderatorID, "reason", reason)
	if err := e.notifier.LogRaidMode(ctx, guildID, moderatorID, when, true, reason); err != nil {
		e.logger.Debug("raid mode notification failed", "err", err)
	}
	return nil
}

// DisableRaidMode ends the lockdown and restores the verification level the
// guild had before it started.
func (e *Engine) DisableRaidMode(ctx context.Context, moderatorID, guildID string, when time.Time, reason string) error {
	prev, err := e.settings.DisableRaidMode(ctx, guildID)
	if err != nil {
		return fmt.Errorf("disabling raid mode: %w", err)
	}
	if err := e.actions.SetVerificationLevel(ctx, guildID, prev, reason); err != nil {
		e.logger.Debug("failed to restore verification level", "guild", guildID, "err", err)
	}
	raidModeTransitions.WithLabelValues("disabled").Inc()
	e.logger.Info("raid mode disabled", "guild", guildID, "moderator", moderatorID, "reason", reason)
	if err := e.notifier.LogRaidMode(ctx, guildID, moderatorID, when, false, reason); err != nil {
		e.logger.Debug("raid mode notification failed", "err", err)
	}
	return nil
}
