package strikes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/10axl/Vortex/notifier"
)

// Handler owns all strike application. One Handler is shared by the automod
// engine and the operator command layer.
type Handler struct {
	Logger   *slog.Logger
	Store    Store
	Actions  Actions
	Notifier notifier.Notifier
}

func NewHandler(logger *slog.Logger, store Store, actions Actions, n notifier.Notifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = notifier.Noop{}
	}
	return &Handler{Logger: logger, Store: store, Actions: actions, Notifier: n}
}

// ApplyStrikes adds amount to the target's ledger and executes at most one
// punishment: the lowest threshold the new total satisfies that has not
// already fired. A jump across several thresholds fires only the first; the
// next call (even with amount zero) re-evaluates and can fire the next.
//
// Failures are logged, never propagated: moderation must not fail the event
// that produced it.
func (h *Handler) ApplyStrikes(ctx context.Context, moderatorID string, when time.Time, guildID, userID string, amount int, reason string) {
	log := h.Logger.With("guild", guildID, "user", userID)
	if amount < 0 {
		log.Warn("ignoring negative strike amount", "amount", amount)
		return
	}
	if h.Actions != nil && !h.Actions.ResolveUser(ctx, userID) {
		log.Warn("strike target could not be resolved", "amount", amount)
		return
	}

	total, err := h.Store.AddStrikes(ctx, guildID, userID, amount)
	if err != nil {
		log.Error("failed to record strikes", "amount", amount, "err", err)
		return
	}
	strikesAppliedCount.Add(float64(amount))
	if amount > 0 {
		if err := h.Notifier.LogStrikes(ctx, guildID, moderatorID, userID, amount, total, reason); err != nil {
			log.Debug("strike notification failed", "err", err)
		}
	}

	p, ok, err := h.nextPunishment(ctx, guildID, userID, total)
	if err != nil {
		log.Error("failed to evaluate punishment ladder", "err", err)
		return
	}
	if !ok {
		return
	}
	h.execute(ctx, log, p, when, guildID, userID, total, reason)
}

// Pardon removes strikes, flooring at zero. Unlike ApplyStrikes this is an
// operator-facing path, so argument problems surface as errors.
func (h *Handler) Pardon(ctx context.Context, moderatorID, guildID, userID string, amount int, reason string) (int, error) {
	if amount < 1 {
		return 0, fmt.Errorf("pardon amount must be positive, got %d", amount)
	}
	total, err := h.Store.RemoveStrikes(ctx, guildID, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("removing strikes: %w", err)
	}
	h.Logger.Info("strikes pardoned", "guild", guildID, "user", userID, "moderator", moderatorID, "amount", amount, "total", total)
	return total, nil
}

// IsMuted reports whether the target currently has an active mute on
// record. Used on the join path to restore mute roles across leave/rejoin.
func (h *Handler) IsMuted(ctx context.Context, guildID, userID string, now time.Time) (bool, error) {
	return h.Store.IsMuted(ctx, Target{GuildID: guildID, UserID: userID}, now)
}

func (h *Handler) nextPunishment(ctx context.Context, guildID, userID string, total int) (Punishment, bool, error) {
	last, err := h.Store.LastPunished(ctx, guildID, userID)
	if err != nil {
		return Punishment{}, false, err
	}
	ladder, err := h.Store.GetPunishments(ctx, guildID)
	if err != nil {
		return Punishment{}, false, err
	}
	// ladder is kept ascending; pick the lowest newly-satisfied threshold
	for _, p := range ladder {
		if p.NumStrikes > last && total >= p.NumStrikes {
			return p, true, nil
		}
	}
	return Punishment{}, false, nil
}

func (h *Handler) execute(ctx context.Context, log *slog.Logger, p Punishment, when time.Time, guildID, userID string, total int, reason string) {
	t := Target{GuildID: guildID, UserID: userID}
	auditReason := fmt.Sprintf("%d strikes: %s", total, reason)

	var err error
	switch p.Action {
	case ActionMute:
		err = h.Actions.ApplyMuteRole(ctx, guildID, userID, auditReason)
		if err == nil {
			err = h.Store.SetMuteExpiry(ctx, t, time.Time{})
		}
	case ActionTempMute:
		err = h.Actions.ApplyMuteRole(ctx, guildID, userID, auditReason)
		if err == nil {
			err = h.Store.SetMuteExpiry(ctx, t, when.Add(p.Duration))
		}
	case ActionKick:
		err = h.Actions.KickMember(ctx, guildID, userID, auditReason)
	case ActionTempBan:
		err = h.Actions.BanMember(ctx, guildID, userID, auditReason)
		if err == nil {
			err = h.Store.SetBanExpiry(ctx, t, when.Add(p.Duration))
		}
	case ActionBan:
		err = h.Actions.BanMember(ctx, guildID, userID, auditReason)
	default:
		log.Error("unknown punishment action", "action", p.Action)
		return
	}
	if err != nil {
		// best-effort: the watermark still advances so a transient platform
		// failure doesn't repeat the same punishment on every future strike
		log.Debug("punishment action failed", "action", p.Action, "err", err)
	}
	if err := h.Store.SetLastPunished(ctx, guildID, userID, p.NumStrikes); err != nil {
		log.Error("failed to record punishment watermark", "err", err)
	}
	punishmentCount.WithLabelValues(string(p.Action)).Inc()
	log.Info("punishment executed", "action", p.Action, "total", total, "threshold", p.NumStrikes)
	if err := h.Notifier.LogPunishment(ctx, guildID, userID, string(p.Action), total, reason); err != nil {
		log.Debug("punishment notification failed", "err", err)
	}
}
