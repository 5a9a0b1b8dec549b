package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/10axl/Vortex/resolver"
)

// InviteFetcher resolves invite codes through the Discord API. It maps
// permission rejections to resolver.ErrForbidden so the engine can tell
// "can't look up invites here" apart from a dead code.
type InviteFetcher struct {
	Session *discordgo.Session
}

func (f *InviteFetcher) FetchInvite(ctx context.Context, code string) (string, error) {
	inv, err := f.Session.Invite(code, discordgo.WithContext(ctx))
	if err != nil {
		if IsForbidden(err) {
			return "", resolver.ErrForbidden
		}
		return "", fmt.Errorf("fetching invite %q: %w", code, err)
	}
	if inv.Guild == nil {
		return "", fmt.Errorf("invite %q has no guild", code)
	}
	return inv.Guild.ID, nil
}
