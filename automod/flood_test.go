package automod

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/10axl/Vortex/settings"
)

func TestMentionFlood(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxMentions: 3}))

	evt := f.Message("g1", "u1", "hey everyone")
	evt.UserMentions = []Mention{
		{UserID: "a"}, {UserID: "b"}, {UserID: "c"}, {UserID: "d"}, {UserID: "e"},
	}
	f.Engine.ProcessMessage(ctx, evt)

	assert.Len(t, f.Actions.Deleted, 1)
	total, err := f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, total, "strikes are the raw excess over the limit")
}

func TestMentionFloodFiltersBotsAndSelf(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxMentions: 2}))

	evt := f.Message("g1", "u1", "ping")
	evt.UserMentions = []Mention{
		{UserID: "u1"},           // self
		{UserID: "b1", Bot: true}, // bot
		{UserID: "a"}, {UserID: "b"},
	}
	f.Engine.ProcessMessage(ctx, evt)

	assert.Empty(t, f.Actions.Deleted, "only two countable mentions")
}

func TestMentionThresholdBelowMinimumDisables(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxMentions: 1}))

	evt := f.Message("g1", "u1", "ping")
	evt.UserMentions = []Mention{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}}
	f.Engine.ProcessMessage(ctx, evt)

	assert.Empty(t, f.Actions.Deleted)
}

func TestNewlineFlood(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxLines: 5}))

	// 11 lines over a limit of 5: ceil(6/5) = 2 strikes
	evt := f.Message("g1", "u1", strings.Repeat("line\n", 10)+"end")
	f.Engine.ProcessMessage(ctx, evt)

	assert.Len(t, f.Actions.Deleted, 1)
	total, err := f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestNewlineAtLimitPasses(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxLines: 5}))

	evt := f.Message("g1", "u1", strings.Repeat("line\n", 4)+"end")
	f.Engine.ProcessMessage(ctx, evt)

	assert.Empty(t, f.Actions.Deleted)
}

func TestNewlineOneLineOverStrikesOnce(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxLines: 5}))

	evt := f.Message("g1", "u1", strings.Repeat("line\n", 5)+"end")
	f.Engine.ProcessMessage(ctx, evt)

	assert.Len(t, f.Actions.Deleted, 1)
	total, err := f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, total, "six lines over a limit of five")
}

func TestRoleMentionFlood(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxRoleMentions: 2}))

	evt := f.Message("g1", "u1", "pinging roles")
	evt.RoleMentions = []string{"r1", "r2", "r3", "r4"}
	f.Engine.ProcessMessage(ctx, evt)

	assert.Len(t, f.Actions.Deleted, 1)
	total, err := f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCombinedFloodReasons(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{MaxMentions: 2, MaxLines: 2}))

	evt := f.Message("g1", "u1", "a\nb\nc\nd\ne")
	evt.UserMentions = []Mention{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}}
	f.Engine.ProcessMessage(ctx, evt)

	// two detectors contribute to one evaluation: one delete, summed strikes
	assert.Len(t, f.Actions.Deleted, 1)
	total, err := f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, total, "1 mention excess + ceil(3/2) line strikes")
}
