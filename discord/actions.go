// Package discord adapts the engine's platform collaborators to the Discord
// API via discordgo: best-effort moderation actions, typed gateway event
// dispatch, and invite lookups.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// DefaultMuteRoleName matches the role the mute punishments manage.
const DefaultMuteRoleName = "Muted"

// Actions wraps a discordgo session behind the engine's action interfaces.
// Outbound mutations share a token-bucket limiter so a burst of detector
// hits cannot exhaust the REST rate budget.
type Actions struct {
	Session      *discordgo.Session
	Logger       *slog.Logger
	MuteRoleName string

	limiter *rate.Limiter
}

func NewActions(session *discordgo.Session, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actions{
		Session:      session,
		Logger:       logger,
		MuteRoleName: DefaultMuteRoleName,
		limiter:      rate.NewLimiter(rate.Limit(20), 40),
	}
}

func (a *Actions) wait(ctx context.Context) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}

// IsForbidden reports whether err is a Discord permission rejection.
func IsForbidden(err error) bool {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode == http.StatusForbidden
	}
	return false
}

func (a *Actions) DeleteMessage(ctx context.Context, channelID, messageID, reason string) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := a.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("deleting message %s: %w", messageID, err)
	}
	return nil
}

// PurgeAuthorMessages bulk-deletes the author's recent messages in the
// channel. One page of history is enough: the purge window is two minutes.
func (a *Actions) PurgeAuthorMessages(ctx context.Context, guildID, channelID, authorID string, since time.Time) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	msgs, err := a.Session.ChannelMessages(channelID, 100, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("listing channel messages: %w", err)
	}
	var ids []string
	for _, m := range msgs {
		if m.Author != nil && m.Author.ID == authorID && m.Timestamp.After(since) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if len(ids) == 1 {
		return a.DeleteMessage(ctx, channelID, ids[0], "Automod")
	}
	if err := a.Session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("bulk deleting %d messages: %w", len(ids), err)
	}
	return nil
}

func (a *Actions) KickMember(ctx context.Context, guildID, userID, reason string) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := a.Session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("kicking %s: %w", userID, err)
	}
	return nil
}

func (a *Actions) BanMember(ctx context.Context, guildID, userID, reason string) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := a.Session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("banning %s: %w", userID, err)
	}
	return nil
}

func (a *Actions) UnbanMember(ctx context.Context, guildID, userID, reason string) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := a.Session.GuildBanDelete(guildID, userID, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("unbanning %s: %w", userID, err)
	}
	return nil
}

func (a *Actions) ApplyMuteRole(ctx context.Context, guildID, userID, reason string) error {
	role, err := a.muteRole(guildID)
	if err != nil {
		return err
	}
	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := a.Session.GuildMemberRoleAdd(guildID, userID, role.ID, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("adding mute role to %s: %w", userID, err)
	}
	return nil
}

func (a *Actions) RemoveMuteRole(ctx context.Context, guildID, userID, reason string) error {
	role, err := a.muteRole(guildID)
	if err != nil {
		return err
	}
	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := a.Session.GuildMemberRoleRemove(guildID, userID, role.ID, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("removing mute role from %s: %w", userID, err)
	}
	return nil
}

// RestoreMuteRole is the join-path variant of ApplyMuteRole; they differ
// only in how callers audit them.
func (a *Actions) RestoreMuteRole(ctx context.Context, guildID, userID, reason string) error {
	return a.ApplyMuteRole(ctx, guildID, userID, reason)
}

func (a *Actions) SendDirectMessage(ctx context.Context, userID, content string) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	ch, err := a.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel for %s: %w", userID, err)
	}
	if _, err := a.Session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending DM to %s: %w", userID, err)
	}
	return nil
}

func (a *Actions) ResolveUser(ctx context.Context, userID string) bool {
	if _, err := a.Session.User(userID, discordgo.WithContext(ctx)); err != nil {
		return false
	}
	return true
}

func (a *Actions) CanKick(ctx context.Context, guildID string) bool {
	guild, err := a.Session.State.Guild(guildID)
	if err != nil || a.Session.State.User == nil {
		return false
	}
	member, err := a.Session.State.Member(guildID, a.Session.State.User.ID)
	if err != nil {
		return false
	}
	return guildPermissions(guild, member)&discordgo.PermissionKickMembers != 0
}

// guildPermissions computes a member's guild-level permission set from
// their roles, without channel overwrites.
func guildPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if member == nil || member.User == nil {
		return 0
	}
	if guild.OwnerID == member.User.ID {
		return discordgo.PermissionAll
	}
	var perms int64
	for _, role := range guild.Roles {
		if role.ID == guild.ID {
			// @everyone
			perms |= role.Permissions
			break
		}
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID {
				perms |= role.Permissions
				break
			}
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func (a *Actions) GetVerificationLevel(ctx context.Context, guildID string) (int, error) {
	guild, err := a.Session.State.Guild(guildID)
	if err == nil {
		return int(guild.VerificationLevel), nil
	}
	g, err := a.Session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("fetching guild %s: %w", guildID, err)
	}
	return int(g.VerificationLevel), nil
}

func (a *Actions) RaiseVerificationLevel(ctx context.Context, guildID, reason string) error {
	current, err := a.GetVerificationLevel(ctx, guildID)
	if err != nil {
		return err
	}
	if current >= int(discordgo.VerificationLevelHigh) {
		return nil
	}
	return a.SetVerificationLevel(ctx, guildID, int(discordgo.VerificationLevelHigh), reason)
}

func (a *Actions) SetVerificationLevel(ctx context.Context, guildID string, level int, reason string) error {
	if err := a.wait(ctx); err != nil {
		return err
	}
	lvl := discordgo.VerificationLevel(level)
	params := &discordgo.GuildParams{VerificationLevel: &lvl}
	if _, err := a.Session.GuildEdit(guildID, params, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("setting verification level on %s: %w", guildID, err)
	}
	return nil
}

func (a *Actions) muteRole(guildID string) (*discordgo.Role, error) {
	guild, err := a.Session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}
	for _, role := range guild.Roles {
		if role.Name == a.MuteRoleName {
			return role, nil
		}
	}
	return nil, fmt.Errorf("guild %s has no %q role", guildID, a.MuteRoleName)
}
