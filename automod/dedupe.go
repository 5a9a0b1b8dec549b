package automod

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/10axl/Vortex/settings"
)

// dupeStatus tracks a single author's most recent message within a guild.
// The window slides: each matching repeat refreshes the timestamp, so a
// sustained slow drip of identical messages keeps counting.
type dupeStatus struct {
	mu    sync.Mutex
	hash  string
	last  time.Time
	count int
}

// update returns the offense count for this message: 0 for fresh content,
// N for the Nth repeat inside the window.
func (d *dupeStatus) update(hash string, when time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hash == hash && when.Sub(d.last) < dupeWindow {
		d.count++
		d.last = when
		return d.count
	}
	d.hash = hash
	d.last = when
	d.count = 0
	return 0
}

func (e *Engine) checkDuplicates(ctx context.Context, log *slog.Logger, evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if !cfg.UseAntiDuplicate() {
		return
	}

	content := evt.Content
	for _, name := range evt.Attachments {
		content += "\n" + name
	}
	hash := hashContent(condenseContent(content))
	key := evt.AuthorID + "|" + evt.GuildID

	offenses := 0
	if status, ok := e.dupes.Get(key); ok {
		offenses = status.update(hash, evt.Timestamp)
	} else {
		e.dupes.Put(key, &dupeStatus{hash: hash, last: evt.Timestamp})
	}
	if offenses == 0 {
		return
	}

	if cfg.DupeStrikeThresh > 0 && offenses >= cfg.DupeStrikeThresh {
		detectorHits.WithLabelValues("duplicate").Inc()
		eff.AddStrikes(cfg.DupeStrikes, "Duplicate messages")
	}
	if offenses == cfg.DupeDeleteThresh {
		detectorHits.WithLabelValues("duplicate").Inc()
		since := evt.Timestamp.Add(-dupePurgeWindow)
		if err := e.actions.PurgeAuthorMessages(ctx, evt.GuildID, evt.ChannelID, evt.AuthorID, since); err != nil {
			log.Debug("failed to purge duplicate messages", "err", err)
		}
	} else if offenses > cfg.DupeDeleteThresh {
		eff.Delete()
	}
}

// condenseContent normalizes message text for duplicate comparison by
// collapsing adjacent repeated token runs, so "spam spam spam" and "spam"
// hash identically while "foo bar foo" is left alone.
func condenseContent(content string) string {
	tokens := strings.Fields(content)
	for {
		changed := false
		for runLen := 1; runLen <= len(tokens)/2; runLen++ {
			for i := 0; i+2*runLen <= len(tokens); {
				if tokenRunsEqual(tokens, i, runLen) {
					tokens = append(tokens[:i+runLen], tokens[i+2*runLen:]...)
					changed = true
				} else {
					i++
				}
			}
		}
		if !changed {
			return strings.Join(tokens, " ")
		}
	}
}

func tokenRunsEqual(tokens []string, i, runLen int) bool {
	for j := 0; j < runLen; j++ {
		if tokens[i+j] != tokens[i+runLen+j] {
			return false
		}
	}
	return true
}

func hashContent(s string) string {
	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(s)))
}
