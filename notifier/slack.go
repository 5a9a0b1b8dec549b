package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SlackNotifier posts moderation events to a slack channel via "incoming
// webhook". The webhook must already be configured in the slack workplace.
type SlackNotifier struct {
	SlackWebhookURL string
	// optional; defaults to http.DefaultClient
	Client *http.Client
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func (n *SlackNotifier) LogMessageEdit(ctx context.Context, guildID, channelID, messageID, authorID string) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("Message edited\nguild `%s` channel `%s` message `%s` author `%s`\n", guildID, channelID, messageID, authorID))
}

func (n *SlackNotifier) LogMessageDelete(ctx context.Context, guildID, channelID, messageID string) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("Message deleted\nguild `%s` channel `%s` message `%s`\n", guildID, channelID, messageID))
}

func (n *SlackNotifier) LogMemberJoin(ctx context.Context, guildID, userID string, when time.Time) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("Member joined\nguild `%s` user `%s` at `%s`\n", guildID, userID, when.UTC().Format(time.RFC3339)))
}

func (n *SlackNotifier) LogMemberLeave(ctx context.Context, guildID, userID string, when time.Time) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("Member left\nguild `%s` user `%s` at `%s`\n", guildID, userID, when.UTC().Format(time.RFC3339)))
}

func (n *SlackNotifier) LogRaidMode(ctx context.Context, guildID, moderatorID string, when time.Time, active bool, reason string) error {
	state := "disabled"
	if active {
		state = "enabled"
	}
	return n.sendSlackMsg(ctx, fmt.Sprintf("⚠️ Anti-Raid Mode %s ⚠️\nguild `%s` moderator `%s`\n%s\n", state, guildID, moderatorID, reason))
}

func (n *SlackNotifier) LogRedirectChain(ctx context.Context, guildID, channelID, messageID, link string, hops []string) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("Resolved link in message `%s` (guild `%s`)\n`%s`\n-> `%s`\n", messageID, guildID, link, strings.Join(hops, "` -> `")))
}

func (n *SlackNotifier) LogStrikes(ctx context.Context, guildID, moderatorID, userID string, amount, total int, reason string) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("Strikes applied\nguild `%s` user `%s` +%d (total %d) by `%s`\n%s\n", guildID, userID, amount, total, moderatorID, reason))
}

func (n *SlackNotifier) LogPunishment(ctx context.Context, guildID, userID string, action string, total int, reason string) error {
	return n.sendSlackMsg(ctx, fmt.Sprintf("⚠️ Punishment executed ⚠️\nguild `%s` user `%s` action `%s` at %d strikes\n%s\n", guildID, userID, action, total, reason))
}
