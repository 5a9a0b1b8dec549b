package automod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/10axl/Vortex/settings"
)

func TestCondenseContent(t *testing.T) {
	assert.Equal(t, "spam", condenseContent("spam spam spam"))
	assert.Equal(t, "spam", condenseContent("spam  spam\n spam"))
	assert.Equal(t, "foo bar foo", condenseContent("foo bar foo"))
	assert.Equal(t, "buy my thing", condenseContent("buy my thing buy my thing buy my thing"))
	assert.Equal(t, "", condenseContent("   "))
	assert.Equal(t, "a b", condenseContent("a a b b a b"))
}

func TestDuplicateEscalation(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{
		DupeDeleteThresh: 2,
		DupeStrikeThresh: 4,
		DupeStrikes:      1,
	}))

	base := time.Now()
	send := func(n int) *MessageEvent {
		evt := f.Message("g1", "u1", "hello there")
		evt.Timestamp = base.Add(time.Duration(n) * time.Second)
		f.Engine.ProcessMessage(ctx, evt)
		return evt
	}

	send(0) // offense 0
	send(1) // offense 1
	assert.Empty(t, f.Actions.Purged)
	assert.Empty(t, f.Actions.Deleted)

	send(2) // offense 2 == delete threshold: purge, not single delete
	assert.Len(t, f.Actions.Purged, 1)
	assert.Empty(t, f.Actions.Deleted)

	send(3) // offense 3 > threshold: delete this message only
	assert.Len(t, f.Actions.Deleted, 1)
	assert.Len(t, f.Actions.Purged, 1)

	total, err := f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, total, "below strike threshold")

	send(4) // offense 4 >= strike threshold
	total, err = f.Strikes.GetStrikes(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDuplicateWindowExpires(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{DupeDeleteThresh: 1}))

	base := time.Now()
	evt := f.Message("g1", "u1", "same thing")
	evt.Timestamp = base
	f.Engine.ProcessMessage(ctx, evt)

	// outside the window: counter resets instead of incrementing
	evt2 := f.Message("g1", "u1", "same thing")
	evt2.Timestamp = base.Add(dupeWindow + time.Second)
	f.Engine.ProcessMessage(ctx, evt2)

	assert.Empty(t, f.Actions.Purged)
	assert.Empty(t, f.Actions.Deleted)
}

func TestDuplicateContentChangeResets(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{DupeDeleteThresh: 1}))

	base := time.Now()
	for i, content := range []string{"one", "two", "one"} {
		evt := f.Message("g1", "u1", content)
		evt.Timestamp = base.Add(time.Duration(i) * time.Second)
		f.Engine.ProcessMessage(ctx, evt)
	}
	assert.Empty(t, f.Actions.Purged)
	assert.Empty(t, f.Actions.Deleted)
}

func TestDuplicateCountsAttachments(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{DupeDeleteThresh: 1}))

	base := time.Now()
	for i := 0; i < 2; i++ {
		evt := f.Message("g1", "u1", "look at this")
		evt.Attachments = []string{"image.png"}
		evt.Timestamp = base.Add(time.Duration(i) * time.Second)
		f.Engine.ProcessMessage(ctx, evt)
	}
	assert.Len(t, f.Actions.Purged, 1)
}

func TestDuplicateTopicOptOut(t *testing.T) {
	f := NewTestFixture()
	ctx := context.Background()
	require.NoError(t, f.Settings.SetAutomod(ctx, "g1", settings.Automod{DupeDeleteThresh: 1}))

	base := time.Now()
	for i := 0; i < 3; i++ {
		evt := f.Message("g1", "u1", "repeat me")
		evt.ChannelTopic = "bot playground {spam}"
		evt.Timestamp = base.Add(time.Duration(i) * time.Second)
		f.Engine.ProcessMessage(ctx, evt)
	}
	assert.Empty(t, f.Actions.Purged)
	assert.Empty(t, f.Actions.Deleted)
}
