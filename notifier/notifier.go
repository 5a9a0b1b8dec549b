// Package notifier is the outbound audit/notification sink. All calls are
// fire-and-forget from the caller's perspective: implementations report
// errors, callers log and move on.
package notifier

import (
	"context"
	"time"
)

type Notifier interface {
	LogMessageEdit(ctx context.Context, guildID, channelID, messageID, authorID string) error
	LogMessageDelete(ctx context.Context, guildID, channelID, messageID string) error
	LogMemberJoin(ctx context.Context, guildID, userID string, when time.Time) error
	LogMemberLeave(ctx context.Context, guildID, userID string, when time.Time) error
	LogRaidMode(ctx context.Context, guildID, moderatorID string, when time.Time, active bool, reason string) error
	LogRedirectChain(ctx context.Context, guildID, channelID, messageID, link string, hops []string) error
	LogStrikes(ctx context.Context, guildID, moderatorID, userID string, amount, total int, reason string) error
	LogPunishment(ctx context.Context, guildID, userID string, action string, total int, reason string) error
}

// Noop discards every notification. Useful default for tests and for
// deployments without a configured sink.
type Noop struct{}

func (Noop) LogMessageEdit(ctx context.Context, guildID, channelID, messageID, authorID string) error {
	return nil
}

func (Noop) LogMessageDelete(ctx context.Context, guildID, channelID, messageID string) error {
	return nil
}

func (Noop) LogMemberJoin(ctx context.Context, guildID, userID string, when time.Time) error {
	return nil
}

func (Noop) LogMemberLeave(ctx context.Context, guildID, userID string, when time.Time) error {
	return nil
}

func (Noop) LogRaidMode(ctx context.Context, guildID, moderatorID string, when time.Time, active bool, reason string) error {
	return nil
}

func (Noop) LogRedirectChain(ctx context.Context, guildID, channelID, messageID, link string, hops []string) error {
	return nil
}

func (Noop) LogStrikes(ctx context.Context, guildID, moderatorID, userID string, amount, total int, reason string) error {
	return nil
}

func (Noop) LogPunishment(ctx context.Context, guildID, userID string, action string, total int, reason string) error {
	return nil
}
