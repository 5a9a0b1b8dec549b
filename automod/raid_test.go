package automod

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/10axl/Vortex/settings"
	"github.com/10axl/Vortex/strikes"
)

func joinAt(guildID, userID string, when time.Time) *JoinEvent {
	return &JoinEvent{GuildID: guildID, GuildName: "Test Guild", UserID: userID, JoinedAt: when}
}

func TestAutoRaidModeTriggers(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{RaidmodeNumber: 4, RaidmodeTime: 10}))
	f.Actions.VerificationLevel = 1

	base := time.Now()
	for i := 0; i < 4; i++ {
		f.Engine.ProcessJoin(ctx, joinAt("g1", fmt.Sprintf("u%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	active, err := f.Settings.IsInRaidMode(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 1, f.Actions.Raised, "verification level raised once")
	// the join that tipped the threshold is itself kicked
	assert.Equal(t, []string{"g1/u3"}, f.Actions.Kicked)
	assert.Equal(t, []string{raidKickReason}, f.Actions.KickReasons)
	assert.Len(t, f.Actions.DMs, 1)
	assert.Contains(t, f.Actions.DMs[0], "**Test Guild** is currently under lockdown")
}

func TestSlowJoinsDoNotTrigger(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{RaidmodeNumber: 3, RaidmodeTime: 5}))

	base := time.Now()
	for i := 0; i < 6; i++ {
		f.Engine.ProcessJoin(ctx, joinAt("g1", fmt.Sprintf("u%d", i), base.Add(time.Duration(i)*10*time.Second)))
	}

	active, err := f.Settings.IsInRaidMode(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, f.Actions.Kicked)
}

func TestBotJoinsIgnored(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{RaidmodeNumber: 2, RaidmodeTime: 10}))

	base := time.Now()
	for i := 0; i < 5; i++ {
		evt := joinAt("g1", fmt.Sprintf("b%d", i), base.Add(time.Duration(i)*time.Second))
		evt.Bot = true
		f.Engine.ProcessJoin(ctx, evt)
	}

	active, err := f.Settings.IsInRaidMode(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRaidModeKicksWhileActive(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod1", "g1", time.Now(), "manual lockdown"))

	base := time.Now()
	f.Engine.ProcessJoin(ctx, joinAt("g1", "u1", base))
	f.Engine.ProcessJoin(ctx, joinAt("g1", "u2", base.Add(5*time.Second)))

	assert.Equal(t, []string{"g1/u1", "g1/u2"}, f.Actions.Kicked)
}

func TestRaidModeAutoReleases(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{RaidmodeNumber: 10, RaidmodeTime: 10}))
	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod1", "g1", time.Now(), "raid detected"))

	base := time.Now()
	f.Engine.ProcessJoin(ctx, joinAt("g1", "u1", base))
	require.Equal(t, []string{"g1/u1"}, f.Actions.Kicked)

	// quiet for more than two minutes: the next joiner releases the
	// lockdown and is not kicked
	f.Engine.ProcessJoin(ctx, joinAt("g1", "u2", base.Add(raidReleaseAfter+time.Second)))

	active, err := f.Settings.IsInRaidMode(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, []string{"g1/u1"}, f.Actions.Kicked)
}

func TestManualLockdownSurvivesQuietPeriod(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	// no auto raid mode settings: only a moderator can lift the lockdown
	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod1", "g1", time.Now(), "manual lockdown"))

	base := time.Now()
	f.Engine.ProcessJoin(ctx, joinAt("g1", "u1", base))
	f.Engine.ProcessJoin(ctx, joinAt("g1", "u2", base.Add(raidReleaseAfter+time.Minute)))

	active, err := f.Settings.IsInRaidMode(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, []string{"g1/u1", "g1/u2"}, f.Actions.Kicked)
}

func TestRaidModeRespectsMissingKickPermission(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod1", "g1", time.Now(), "manual lockdown"))
	f.Actions.DenyKick = true

	now := time.Now()
	target := strikes.Target{GuildID: "g1", UserID: "u1"}
	require.NoError(t, f.Strikes.SetMuteExpiry(ctx, target, now.Add(time.Hour)))

	f.Engine.ProcessJoin(ctx, joinAt("g1", "u1", now))

	assert.Empty(t, f.Actions.Kicked)
	assert.Empty(t, f.Actions.DMs)
	// without kick permission the joiner stays, so an active mute is reapplied
	assert.Equal(t, []string{"g1/u1"}, f.Actions.Restored)
}

func TestVerificationLevelRestoredOnDisable(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	f.Actions.VerificationLevel = 2

	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod1", "g1", time.Now(), "manual lockdown"))
	require.NoError(t, f.Engine.DisableRaidMode(ctx, "mod1", "g1", time.Now(), "all clear"))

	assert.Equal(t, 2, f.Actions.VerificationLevel)
	assert.Equal(t, 1, f.Actions.LevelSets)
}

func TestEnableRaidModeIdempotent(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()

	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod1", "g1", time.Now(), "lockdown"))
	require.NoError(t, f.Engine.EnableRaidMode(ctx, "mod2", "g1", time.Now(), "lockdown again"))

	assert.Equal(t, 1, f.Actions.Raised)
}

func TestMuteRoleRestoredOnRejoin(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	now := time.Now()
	target := strikes.Target{GuildID: "g1", UserID: "u1"}
	require.NoError(t, f.Strikes.SetMuteExpiry(ctx, target, now.Add(time.Hour)))

	f.Engine.ProcessJoin(ctx, joinAt("g1", "u1", now))

	assert.Equal(t, []string{"g1/u1"}, f.Actions.Restored)
}

func TestExpiredMuteNotRestored(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	now := time.Now()
	target := strikes.Target{GuildID: "g1", UserID: "u1"}
	require.NoError(t, f.Strikes.SetMuteExpiry(ctx, target, now.Add(-time.Hour)))

	f.Engine.ProcessJoin(ctx, joinAt("g1", "u1", now))

	assert.Empty(t, f.Actions.Restored)
}
