package automod

import (
	"fmt"
	"strings"

	"github.com/10axl/Vortex/settings"
)

func (e *Engine) checkMentions(evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if cfg.MaxMentions < settings.MentionMinimum {
		return
	}
	count := 0
	for _, m := range evt.UserMentions {
		if !m.Bot && m.UserID != evt.AuthorID {
			count++
		}
	}
	if count <= cfg.MaxMentions {
		return
	}
	detectorHits.WithLabelValues("mentions").Inc()
	eff.AddStrikes(count-cfg.MaxMentions, fmt.Sprintf("Mentioning %d users", count))
	eff.Delete()
}

func (e *Engine) checkNewlines(evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if cfg.MaxLines <= 0 {
		return
	}
	count := strings.Count(evt.Content, "\n") + 1
	if count <= cfg.MaxLines {
		return
	}
	detectorHits.WithLabelValues("newlines").Inc()
	strikeCount := (count - cfg.MaxLines + cfg.MaxLines - 1) / cfg.MaxLines
	eff.AddStrikes(strikeCount, fmt.Sprintf("Message contained %d newlines", count))
	eff.Delete()
}

func (e *Engine) checkRoleMentions(evt *MessageEvent, cfg settings.Automod, eff *Effects) {
	if cfg.MaxRoleMentions < settings.RoleMentionMinimum {
		return
	}
	count := len(evt.RoleMentions)
	if count <= cfg.MaxRoleMentions {
		return
	}
	detectorHits.WithLabelValues("rolementions").Inc()
	eff.AddStrikes(count-cfg.MaxRoleMentions, fmt.Sprintf("Mentioning %d roles", count))
	eff.Delete()
}
