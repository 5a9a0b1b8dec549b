package automod

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/10axl/Vortex/resolver"
	"github.com/10axl/Vortex/settings"
)

var (
	inviteRegex = regexp.MustCompile(`(?i)discord\s?(?:\.\s?gg|app\s?.\s?com\s?/\s?invite)\s?/\s?([A-Za-z0-9-]{2,18})`)
	linkRegex   = regexp.MustCompile(`(?i)https?://\S+`)

	// strict invite-link form, used against resolved redirect hops where
	// the loose pattern above would be too permissive
	inviteLinkRegex = regexp.MustCompile(`(?i)^https?://discord(?:app\.com/invite|\.gg)/([A-Za-z0-9-]{2,18})$`)
)

// referralMatcher holds the referral patterns compiled from the configured
// domain list: a scanning form for raw message content and an anchored form
// for classifying individual resolved hops.
type referralMatcher struct {
	scan *regexp.Regexp
	full *regexp.Regexp
}

func newReferralMatcher(domains []string) *referralMatcher {
	var quoted []string
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(d)))
	}
	body := `https?://(?:`
	if len(quoted) > 0 {
		body += `(?:[a-z0-9-_]+\.)?(?:` + strings.Join(quoted, "|") + `)[/?]|`
	}
	body += `\S+[?&]ref=|\S+/ref/)\S+`
	return &referralMatcher{
		scan: regexp.MustCompile(`(?i)` + body),
		full: regexp.MustCompile(`(?i)^` + body + `$`),
	}
}

func (e *Engine) checkReferral(evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if cfg.RefStrikes <= 0 {
		return
	}
	if !e.refRegex.scan.MatchString(evt.Content) {
		return
	}
	detectorHits.WithLabelValues("referral").Inc()
	eff.AddStrikes(cfg.RefStrikes, "Referral link")
	eff.Delete()
}

func (e *Engine) checkCopypasta(evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if cfg.CopypastaStrikes <= 0 || e.copypastas == nil {
		return
	}
	name := e.copypastas.Match(evt.Content)
	if name == "" {
		return
	}
	detectorHits.WithLabelValues("copypasta").Inc()
	eff.AddStrikes(cfg.CopypastaStrikes, name+" copypasta")
	eff.Delete()
}

// checkInvites scans for invite codes and strikes on the first one that
// resolves to a foreign guild. Codes that fail to resolve are treated as no
// match; a permission-class failure abandons the rest of the scan, since
// every remaining lookup would fail the same way.
func (e *Engine) checkInvites(ctx context.Context, log *slog.Logger, evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if cfg.InviteStrikes <= 0 || e.invites == nil {
		return
	}
	for _, match := range inviteRegex.FindAllStringSubmatch(evt.Content, -1) {
		guildID, err := e.invites.Resolve(ctx, match[1])
		if err != nil {
			if errors.Is(err, resolver.ErrForbidden) {
				log.Debug("missing permission to resolve invites", "code", match[1])
				return
			}
			continue
		}
		if guildID != evt.GuildID {
			detectorHits.WithLabelValues("invites").Inc()
			eff.AddStrikes(cfg.InviteStrikes, "Advertising")
			eff.Delete()
			return
		}
	}
}

// resolveLinks is the async stage: follow each link's redirect chain and
// classify the hops as hidden invites or referral links. It runs on the
// worker pool after the synchronous pass finished without a deletion, and
// stops early once both classifications are settled.
func (e *Engine) resolveLinks(ctx context.Context, evt *MessageEvent, cfg settings.Automod) {
	log := e.logger.With("guild", evt.GuildID, "channel", evt.ChannelID, "author", evt.AuthorID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("link resolution failed", "message", evt.MessageID, "panic", r)
		}
	}()

	wantInvite := cfg.InviteStrikes > 0 && e.invites != nil
	wantReferral := cfg.RefStrikes > 0
	var advertising, referral bool
	var offendingLink string
	var offendingHops []string

	for _, link := range linkRegex.FindAllString(evt.Content, -1) {
		if (advertising || !wantInvite) && (referral || !wantReferral) {
			break
		}
		hops, err := e.followRedirects(ctx, link)
		if err != nil {
			log.Debug("redirect resolution failed", "link", link, "err", err)
			continue
		}
		if len(hops) == 0 {
			continue
		}
		matched := false
		for _, hop := range hops {
			if wantInvite && !advertising {
				if m := inviteLinkRegex.FindStringSubmatch(hop); m != nil {
					guildID, err := e.invites.Resolve(ctx, m[1])
					if err == nil && guildID != evt.GuildID {
						advertising = true
						matched = true
					}
				}
			}
			if wantReferral && !referral && e.refRegex.full.MatchString(hop) {
				referral = true
				matched = true
			}
		}
		if matched {
			offendingLink = link
			offendingHops = hops
		}
	}

	total := 0
	var reasons []string
	if advertising {
		detectorHits.WithLabelValues("invites").Inc()
		total += cfg.InviteStrikes
		reasons = append(reasons, "Advertising (Resolved Link)")
	}
	if referral {
		detectorHits.WithLabelValues("referral").Inc()
		total += cfg.RefStrikes
		reasons = append(reasons, "Referral Link (Resolved Link)")
	}
	if total == 0 {
		return
	}
	if err := e.notifier.LogRedirectChain(ctx, evt.GuildID, evt.ChannelID, evt.MessageID, offendingLink, offendingHops); err != nil {
		log.Debug("redirect chain notification failed", "err", err)
	}
	if err := e.actions.DeleteMessage(ctx, evt.ChannelID, evt.MessageID, deleteAuditReason); err != nil {
		log.Debug("failed to delete message", "message", evt.MessageID, "err", err)
	} else {
		messagesDeleted.Inc()
	}
	e.strikes.ApplyStrikes(ctx, e.selfID, evt.Timestamp, evt.GuildID, evt.AuthorID, total, strings.Join(reasons, ", "))
}

func (e *Engine) followRedirects(ctx context.Context, link string) ([]string, error) {
	if e.resolveLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.resolveLimit)
		defer cancel()
	}
	return e.redirects.FollowRedirects(ctx, link)
}
