package discord

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/10axl/Vortex/automod"
	"github.com/10axl/Vortex/notifier"
	"github.com/10axl/Vortex/settings"
	"github.com/10axl/Vortex/strikes"
)

func testStateSession(t *testing.T) *discordgo.Session {
	t.Helper()
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: "bot"}
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Position: 0},
			{ID: "r-mod", Position: 10, Permissions: discordgo.PermissionKickMembers},
			{ID: "r-bot", Position: 20},
			{ID: "r-member", Position: 1},
		},
		Channels: []*discordgo.Channel{
			{ID: "c1", GuildID: "g1", Topic: "general chat"},
		},
	}))
	require.NoError(t, state.MemberAdd(&discordgo.Member{
		GuildID: "g1", User: &discordgo.User{ID: "bot"}, Roles: []string{"r-bot"},
	}))
	require.NoError(t, state.MemberAdd(&discordgo.Member{
		GuildID: "g1", User: &discordgo.User{ID: "mod"}, Roles: []string{"r-mod"},
	}))
	require.NoError(t, state.MemberAdd(&discordgo.Member{
		GuildID: "g1", User: &discordgo.User{ID: "member"}, Roles: []string{"r-member"},
	}))
	return &discordgo.Session{State: state}
}

func testGateway(t *testing.T) (*Gateway, *automod.RecordingActions) {
	t.Helper()
	acts := automod.NewRecordingActions()
	logger := slog.Default()
	engine := automod.New(automod.Config{
		Logger:   logger,
		Settings: settings.NewMemStore(),
		Strikes:  strikes.NewHandler(logger, strikes.NewMemStore(), acts, notifier.Noop{}),
		Actions:  acts,
		SelfID:   "bot",
	})
	return NewGateway(testStateSession(t), engine, notifier.Noop{}, logger), acts
}

func TestGuildPermissions(t *testing.T) {
	g, _ := testGateway(t)
	guild, err := g.Session.State.Guild("g1")
	require.NoError(t, err)

	mod, err := g.Session.State.Member("g1", "mod")
	require.NoError(t, err)
	assert.NotZero(t, guildPermissions(guild, mod)&discordgo.PermissionKickMembers)

	member, err := g.Session.State.Member("g1", "member")
	require.NoError(t, err)
	assert.Zero(t, guildPermissions(guild, member)&discordgo.PermissionKickMembers)

	owner := &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "owner"}}
	assert.Equal(t, int64(discordgo.PermissionAll), guildPermissions(guild, owner))
}

func TestBuildMessageEventEligibility(t *testing.T) {
	g, _ := testGateway(t)

	msg := &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "member"},
		Content:   "hello",
		Timestamp: time.Now(),
	}
	evt := g.buildMessageEvent(msg)

	assert.True(t, evt.MemberResolved)
	assert.True(t, evt.CanInteract, "bot role outranks the member")
	assert.False(t, evt.AuthorPerms.KickMembers)
	assert.Equal(t, "general chat", evt.ChannelTopic)

	// moderators carry the kick permission and fail eligibility
	msg.Author = &discordgo.User{ID: "mod"}
	evt = g.buildMessageEvent(msg)
	assert.True(t, evt.AuthorPerms.KickMembers)

	// the owner cannot be interacted with at all
	msg.Author = &discordgo.User{ID: "owner"}
	msg.Member = &discordgo.Member{GuildID: "g1", Roles: nil}
	evt = g.buildMessageEvent(msg)
	assert.False(t, evt.CanInteract)
}

func TestDispatchDropsMismatchedPayloads(t *testing.T) {
	g, acts := testGateway(t)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		g.Dispatch(ctx, EventMessageCreate, "not a message")
		g.Dispatch(ctx, EventMemberJoin, 42)
		g.Dispatch(ctx, EventKind(99), nil)
	})
	assert.Empty(t, acts.Deleted)
	assert.Empty(t, acts.Kicked)
}

func TestDispatchIgnoresDirectMessages(t *testing.T) {
	g, acts := testGateway(t)

	g.Dispatch(context.Background(), EventMessageCreate, &discordgo.Message{
		ID:        "dm1",
		ChannelID: "dmchan",
		Author:    &discordgo.User{ID: "member"},
		Content:   "psst",
	})
	assert.Empty(t, acts.Deleted)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "message_create", EventMessageCreate.String())
	assert.Equal(t, "member_join", EventMemberJoin.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
