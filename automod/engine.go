// Package automod implements the content-moderation engine: an orchestrator
// that runs a fixed set of detector rules over message and join events,
// accumulates their decisions in an Effects value, and carries them out
// through best-effort platform actions.
package automod

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/10axl/Vortex/fixedcache"
	"github.com/10axl/Vortex/notifier"
	"github.com/10axl/Vortex/resolver"
	"github.com/10axl/Vortex/settings"
	"github.com/10axl/Vortex/strikes"
)

const (
	// RestoreMuteRoleAudit is the audit-log reason used when a mute role is
	// reapplied to a rejoining member.
	RestoreMuteRoleAudit = "Restoring Muted Role"

	deleteAuditReason = "Automod"
	raidKickReason    = "Anti-Raid Mode"
	raidAutoDisable   = "No recent join attempts"

	dupeWindow       = 30 * time.Second
	dupePurgeWindow  = 2 * time.Minute
	raidReleaseAfter = 120 * time.Second
)

// PlatformActions is everything the engine asks the chat platform to do.
// Every method is best-effort from the engine's perspective: permission
// failures are logged at debug level and swallowed.
type PlatformActions interface {
	DeleteMessage(ctx context.Context, channelID, messageID, reason string) error
	// PurgeAuthorMessages bulk-deletes the author's messages in the channel
	// newer than since.
	PurgeAuthorMessages(ctx context.Context, guildID, channelID, authorID string, since time.Time) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	RestoreMuteRole(ctx context.Context, guildID, userID, reason string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	CanKick(ctx context.Context, guildID string) bool

	GetVerificationLevel(ctx context.Context, guildID string) (int, error)
	// RaiseVerificationLevel bumps the guild's verification level to at
	// least "high" if it is currently lower.
	RaiseVerificationLevel(ctx context.Context, guildID, reason string) error
	SetVerificationLevel(ctx context.Context, guildID string, level int, reason string) error
}

// Config carries construction parameters for the engine. Zero values fall
// back to the listed defaults.
type Config struct {
	Logger     *slog.Logger
	Settings   settings.Store
	Strikes    *strikes.Handler
	Actions    PlatformActions
	Invites    resolver.InviteResolver
	Redirects  resolver.RedirectResolver
	Copypastas *resolver.Copypastas
	Notifier   notifier.Notifier

	// SelfID is the bot's own user ID, recorded as the moderator on
	// automated strikes.
	SelfID string

	// ReferralDomains are the known referral-link hosts compiled into the
	// referral pattern.
	ReferralDomains []string

	// ResolveTimeout bounds each redirect chain in the async stage.
	// Zero means no engine-imposed bound.
	ResolveTimeout time.Duration

	DedupeCacheSize int // default 3000
	JoinCacheSize   int // default 1000
	AsyncWorkers    int // default 4
	QueueSize       int // default 256
}

// Engine evaluates chat events against per-guild configuration. All methods
// are safe for concurrent use; per-event state lives in Effects values and
// shared detector state lives in internally synchronized bounded caches.
type Engine struct {
	logger     *slog.Logger
	settings   settings.Store
	strikes    *strikes.Handler
	actions    PlatformActions
	invites    resolver.InviteResolver
	redirects  resolver.RedirectResolver
	copypastas *resolver.Copypastas
	notifier   notifier.Notifier
	selfID     string

	refRegex     *referralMatcher
	dupes        *fixedcache.Cache[*dupeStatus]
	lastJoin     *fixedcache.Cache[time.Time]
	joinWindows  *fixedcache.Cache[*joinWindow]
	joinMu       sync.Mutex
	resolveLimit time.Duration

	workers int
	jobs    chan func()
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := cfg.Notifier
	if n == nil {
		n = notifier.Noop{}
	}
	dupeSize := cfg.DedupeCacheSize
	if dupeSize <= 0 {
		dupeSize = 3000
	}
	joinSize := cfg.JoinCacheSize
	if joinSize <= 0 {
		joinSize = 1000
	}
	workers := cfg.AsyncWorkers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Engine{
		logger:       logger,
		settings:     cfg.Settings,
		strikes:      cfg.Strikes,
		actions:      cfg.Actions,
		invites:      cfg.Invites,
		redirects:    cfg.Redirects,
		copypastas:   cfg.Copypastas,
		notifier:     n,
		selfID:       cfg.SelfID,
		refRegex:     newReferralMatcher(cfg.ReferralDomains),
		dupes:        fixedcache.New[*dupeStatus](dupeSize),
		lastJoin:     fixedcache.New[time.Time](joinSize),
		joinWindows:  fixedcache.New[*joinWindow](joinSize),
		resolveLimit: cfg.ResolveTimeout,
		workers:      workers,
		jobs:         make(chan func(), queueSize),
	}
}

// Run drives the async resolution worker pool until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-e.jobs:
					job()
				}
			}
		}()
	}
	wg.Wait()
}

// ProcessMessage evaluates a message post or edit. It never returns an
// error: moderation failures must not fail the event that produced them, so
// everything is logged and swallowed, including detector panics.
func (e *Engine) ProcessMessage(ctx context.Context, evt *MessageEvent) {
	log := e.logger.With("guild", evt.GuildID, "channel", evt.ChannelID, "author", evt.AuthorID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("automod event processing failed", "message", evt.MessageID, "panic", r)
		}
	}()
	messagesProcessed.Inc()

	if !e.shouldPerformAutomod(ctx, log, evt) {
		messagesSkipped.Inc()
		return
	}

	cfg, err := e.settings.GetAutomod(ctx, evt.GuildID)
	if err != nil {
		log.Error("failed to load automod settings", "err", err)
		return
	}

	// channel-topic opt-outs: {spam} waives the spam-shaped checks,
	// {invites} waives the advertising-shaped ones
	topic := strings.ToLower(evt.ChannelTopic)
	spamOptOut := strings.Contains(topic, "{spam}")
	inviteOptOut := strings.Contains(topic, "{invites}")

	eff := &Effects{}
	if !spamOptOut {
		e.runDetector(log, "duplicate", func() { e.checkDuplicates(ctx, log, evt, cfg, eff) })
	}
	e.runDetector(log, "mentions", func() { e.checkMentions(evt, cfg, eff) })
	if !spamOptOut {
		e.runDetector(log, "newlines", func() { e.checkNewlines(evt, cfg, eff) })
	}
	e.runDetector(log, "rolementions", func() { e.checkRoleMentions(evt, cfg, eff) })
	if !inviteOptOut {
		e.runDetector(log, "referral", func() { e.checkReferral(evt, cfg, eff) })
	}
	if !spamOptOut {
		e.runDetector(log, "copypasta", func() { e.checkCopypasta(evt, cfg, eff) })
	}
	if !inviteOptOut {
		e.runDetector(log, "invites", func() { e.checkInvites(ctx, log, evt, cfg, eff) })
	}

	if eff.ShouldDelete() {
		// the gateway's delete event handles audit notification
		if err := e.actions.DeleteMessage(ctx, evt.ChannelID, evt.MessageID, deleteAuditReason); err != nil {
			log.Debug("failed to delete message", "message", evt.MessageID, "err", err)
		} else {
			messagesDeleted.Inc()
		}
	}
	if total := eff.StrikeTotal(); total > 0 {
		e.strikes.ApplyStrikes(ctx, e.selfID, evt.Timestamp, evt.GuildID, evt.AuthorID, total, eff.Reason())
	}

	if !eff.ShouldDelete() && cfg.ResolveURLs && (cfg.RefStrikes > 0 || cfg.InviteStrikes > 0) && e.redirects != nil {
		evtCopy := *evt
		e.enqueue(log, func() {
			e.resolveLinks(context.Background(), &evtCopy, cfg)
		})
	}
}

// shouldPerformAutomod is the eligibility filter: bots, members the bot
// cannot act on, members with moderation-class permissions, and ignored
// channels/members are all exempt.
func (e *Engine) shouldPerformAutomod(ctx context.Context, log *slog.Logger, evt *MessageEvent) bool {
	if evt.AuthorBot {
		return false
	}
	if !evt.MemberResolved || !evt.CanInteract {
		return false
	}
	p := evt.AuthorPerms
	if p.KickMembers || p.BanMembers || p.ManageGuild || p.ManageMessages {
		return false
	}
	if ignored, err := e.settings.IsIgnoredChannel(ctx, evt.GuildID, evt.ChannelID); err != nil {
		log.Debug("ignore-list lookup failed", "err", err)
	} else if ignored {
		return false
	}
	if ignored, err := e.settings.IsIgnoredMember(ctx, evt.GuildID, evt.AuthorID); err != nil {
		log.Debug("ignore-list lookup failed", "err", err)
	} else if ignored {
		return false
	}
	return true
}

// runDetector isolates a single rule: a panic in one detector must not
// suppress the others.
func (e *Engine) runDetector(log *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			detectorErrors.WithLabelValues(name).Inc()
			log.Error("detector panicked", "detector", name, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) enqueue(log *slog.Logger, job func()) {
	select {
	case e.jobs <- job:
		asyncJobsEnqueued.Inc()
	default:
		asyncJobsDropped.Inc()
		log.Warn("async resolution queue full, dropping job")
	}
}
