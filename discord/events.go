package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/10axl/Vortex/automod"
	"github.com/10axl/Vortex/notifier"
)

// EventKind is the closed set of gateway events the moderation core
// consumes. Anything the gateway delivers outside this set is dropped at
// dispatch instead of leaking into the engine.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventMessageCreate
	EventMessageUpdate
	EventMessageDelete
	EventMemberJoin
	EventMemberLeave
)

func (k EventKind) String() string {
	switch k {
	case EventMessageCreate:
		return "message_create"
	case EventMessageUpdate:
		return "message_update"
	case EventMessageDelete:
		return "message_delete"
	case EventMemberJoin:
		return "member_join"
	case EventMemberLeave:
		return "member_leave"
	default:
		return "unknown"
	}
}

// Gateway converts discordgo session events into engine events and routes
// them through the typed dispatch.
type Gateway struct {
	Session  *discordgo.Session
	Engine   *automod.Engine
	Notifier notifier.Notifier
	Logger   *slog.Logger
}

func NewGateway(session *discordgo.Session, engine *automod.Engine, n notifier.Notifier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = notifier.Noop{}
	}
	return &Gateway{Session: session, Engine: engine, Notifier: n, Logger: logger}
}

// Hook registers the gateway handlers and the intents they require.
func (g *Gateway) Hook() {
	g.Session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	g.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		g.Dispatch(context.Background(), EventMessageCreate, m.Message)
	})
	g.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		g.Dispatch(context.Background(), EventMessageUpdate, m.Message)
	})
	g.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageDelete) {
		g.Dispatch(context.Background(), EventMessageDelete, m.Message)
	})
	g.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		g.Dispatch(context.Background(), EventMemberJoin, m.Member)
	})
	g.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		g.Dispatch(context.Background(), EventMemberLeave, m.Member)
	})
}

// Dispatch routes one gateway event by kind. Unknown kinds and payloads
// that do not match their kind are dropped with a warning.
func (g *Gateway) Dispatch(ctx context.Context, kind EventKind, payload any) {
	switch kind {
	case EventMessageCreate, EventMessageUpdate:
		msg, ok := payload.(*discordgo.Message)
		if !ok {
			g.dropPayload(kind, payload)
			return
		}
		g.handleMessage(ctx, kind, msg)
	case EventMessageDelete:
		msg, ok := payload.(*discordgo.Message)
		if !ok {
			g.dropPayload(kind, payload)
			return
		}
		if msg.GuildID == "" {
			return
		}
		if err := g.Notifier.LogMessageDelete(ctx, msg.GuildID, msg.ChannelID, msg.ID); err != nil {
			g.Logger.Debug("delete notification failed", "err", err)
		}
	case EventMemberJoin:
		member, ok := payload.(*discordgo.Member)
		if !ok {
			g.dropPayload(kind, payload)
			return
		}
		g.handleJoin(ctx, member)
	case EventMemberLeave:
		member, ok := payload.(*discordgo.Member)
		if !ok || member.User == nil {
			g.dropPayload(kind, payload)
			return
		}
		if err := g.Notifier.LogMemberLeave(ctx, member.GuildID, member.User.ID, time.Now()); err != nil {
			g.Logger.Debug("leave notification failed", "err", err)
		}
	default:
		g.Logger.Warn("dropping event of unknown kind", "kind", int(kind))
	}
}

func (g *Gateway) dropPayload(kind EventKind, payload any) {
	g.Logger.Warn("dropping event with mismatched payload", "kind", kind.String(), "payload", payload)
}

func (g *Gateway) handleMessage(ctx context.Context, kind EventKind, msg *discordgo.Message) {
	if msg.GuildID == "" || msg.Author == nil {
		return
	}
	evt := g.buildMessageEvent(msg)
	if kind == EventMessageUpdate {
		if msg.EditedTimestamp != nil {
			evt.Timestamp = *msg.EditedTimestamp
		}
		if err := g.Notifier.LogMessageEdit(ctx, msg.GuildID, msg.ChannelID, msg.ID, msg.Author.ID); err != nil {
			g.Logger.Debug("edit notification failed", "err", err)
		}
	}
	g.Engine.ProcessMessage(ctx, evt)
}

func (g *Gateway) handleJoin(ctx context.Context, member *discordgo.Member) {
	if member.User == nil {
		return
	}
	joinedAt := member.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	guildName := member.GuildID
	if guild, err := g.Session.State.Guild(member.GuildID); err == nil {
		guildName = guild.Name
	}
	evt := &automod.JoinEvent{
		GuildID:   member.GuildID,
		GuildName: guildName,
		UserID:    member.User.ID,
		Bot:       member.User.Bot,
		JoinedAt:  joinedAt,
	}
	if err := g.Notifier.LogMemberJoin(ctx, member.GuildID, member.User.ID, joinedAt); err != nil {
		g.Logger.Debug("join notification failed", "err", err)
	}
	g.Engine.ProcessJoin(ctx, evt)
}

// buildMessageEvent gathers the eligibility signals the engine needs from
// session state: author permissions, role hierarchy, and the channel topic.
func (g *Gateway) buildMessageEvent(msg *discordgo.Message) *automod.MessageEvent {
	evt := &automod.MessageEvent{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		AuthorID:  msg.Author.ID,
		AuthorBot: msg.Author.Bot,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	for _, att := range msg.Attachments {
		evt.Attachments = append(evt.Attachments, att.Filename)
	}
	for _, u := range msg.Mentions {
		evt.UserMentions = append(evt.UserMentions, automod.Mention{UserID: u.ID, Bot: u.Bot})
	}
	evt.RoleMentions = append(evt.RoleMentions, msg.MentionRoles...)

	if ch, err := g.Session.State.Channel(msg.ChannelID); err == nil {
		evt.ChannelTopic = ch.Topic
	}

	guild, err := g.Session.State.Guild(msg.GuildID)
	if err != nil {
		return evt
	}
	member := msg.Member
	if member == nil {
		member, _ = g.Session.State.Member(msg.GuildID, msg.Author.ID)
	}
	if member == nil {
		return evt
	}
	// gateway message members omit the user and guild fields
	if member.User == nil {
		member.User = msg.Author
	}
	evt.MemberResolved = true

	perms := guildPermissions(guild, member)
	evt.AuthorPerms.KickMembers = perms&discordgo.PermissionKickMembers != 0
	evt.AuthorPerms.BanMembers = perms&discordgo.PermissionBanMembers != 0
	evt.AuthorPerms.ManageGuild = perms&discordgo.PermissionManageServer != 0
	if chanPerms, err := g.Session.State.UserChannelPermissions(msg.Author.ID, msg.ChannelID); err == nil {
		evt.AuthorPerms.ManageMessages = chanPerms&discordgo.PermissionManageMessages != 0
	}

	evt.CanInteract = g.canInteract(guild, member)
	return evt
}

// canInteract reports whether the bot outranks the member in the guild's
// role hierarchy, which gates role changes and kicks against them.
func (g *Gateway) canInteract(guild *discordgo.Guild, member *discordgo.Member) bool {
	if g.Session.State.User == nil {
		return false
	}
	if member.User != nil && guild.OwnerID == member.User.ID {
		return false
	}
	self, err := g.Session.State.Member(guild.ID, g.Session.State.User.ID)
	if err != nil {
		return false
	}
	return highestRolePosition(guild, self) > highestRolePosition(guild, member)
}

func highestRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	highest := -1
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Position > highest {
				highest = role.Position
			}
		}
	}
	return highest
}
