package strikes

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepMutes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewMemStore()
	actions := &mockActions{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sw := &Sweeper{
		Logger:  slog.Default(),
		Store:   store,
		Actions: actions,
		Now:     func() time.Time { return now },
	}

	assert.NoError(store.SetMuteExpiry(ctx, Target{"g1", "u1"}, now.Add(time.Minute)))
	assert.NoError(store.SetMuteExpiry(ctx, Target{"g1", "u2"}, time.Time{})) // permanent

	sw.SweepMutes(ctx)
	assert.Empty(actions.calls)

	now = now.Add(2 * time.Minute)
	sw.SweepMutes(ctx)
	assert.Equal([]string{"unmute:g1/u1"}, actions.calls)

	// idempotent: re-running against reverted state is a no-op, and the
	// permanent mute is never swept
	sw.SweepMutes(ctx)
	assert.Equal([]string{"unmute:g1/u1"}, actions.calls)

	muted, err := store.IsMuted(ctx, Target{"g1", "u2"}, now)
	assert.NoError(err)
	assert.True(muted)
}

func TestSweepBans(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewMemStore()
	actions := &mockActions{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sw := &Sweeper{
		Logger:  slog.Default(),
		Store:   store,
		Actions: actions,
		Now:     func() time.Time { return now },
	}

	assert.NoError(store.SetBanExpiry(ctx, Target{"g1", "u1"}, now.Add(24*time.Hour)))

	sw.SweepBans(ctx)
	assert.Empty(actions.calls)

	now = now.Add(25 * time.Hour)
	sw.SweepBans(ctx)
	sw.SweepBans(ctx)
	assert.Equal([]string{"unban:g1/u1"}, actions.calls)
}

func TestSweepSkipsReplacedExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewMemStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	old := now.Add(-time.Minute)
	assert.NoError(store.SetMuteExpiry(ctx, Target{"g1", "u1"}, old))
	// a newer mute landed between the sweep's list and clear
	renewed := now.Add(time.Hour)
	assert.NoError(store.SetMuteExpiry(ctx, Target{"g1", "u1"}, renewed))
	assert.NoError(store.ClearMuteExpiry(ctx, Target{"g1", "u1"}, old))

	muted, err := store.IsMuted(ctx, Target{"g1", "u1"}, now)
	assert.NoError(err)
	assert.True(muted)
}
