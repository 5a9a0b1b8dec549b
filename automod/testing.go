package automod

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/10axl/Vortex/notifier"
	"github.com/10axl/Vortex/resolver"
	"github.com/10axl/Vortex/settings"
	"github.com/10axl/Vortex/strikes"
)

// RecordingActions is an in-memory PlatformActions and strikes.Actions
// implementation that records every call, for use in tests.
type RecordingActions struct {
	mu sync.Mutex

	Deleted      []string // "channel/message"
	Purged       []string // "guild/channel/author"
	Kicked       []string // "guild/user"
	Banned       []string
	Unbanned     []string
	MuteRoles    []string
	RemovedMutes []string
	Restored     []string
	DMs          []string // "user: content"
	KickReasons  []string

	VerificationLevel int
	Raised            int
	LevelSets         int

	Unresolvable map[string]bool
	DenyKick     bool
	FailAll      bool
}

func NewRecordingActions() *RecordingActions {
	return &RecordingActions{Unresolvable: map[string]bool{}}
}

func (a *RecordingActions) record(dst *[]string, entry string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailAll {
		return fmt.Errorf("simulated platform failure")
	}
	*dst = append(*dst, entry)
	return nil
}

func (a *RecordingActions) DeleteMessage(ctx context.Context, channelID, messageID, reason string) error {
	return a.record(&a.Deleted, channelID+"/"+messageID)
}

func (a *RecordingActions) PurgeAuthorMessages(ctx context.Context, guildID, channelID, authorID string, since time.Time) error {
	return a.record(&a.Purged, guildID+"/"+channelID+"/"+authorID)
}

func (a *RecordingActions) KickMember(ctx context.Context, guildID, userID, reason string) error {
	a.mu.Lock()
	a.KickReasons = append(a.KickReasons, reason)
	a.mu.Unlock()
	return a.record(&a.Kicked, guildID+"/"+userID)
}

func (a *RecordingActions) BanMember(ctx context.Context, guildID, userID, reason string) error {
	return a.record(&a.Banned, guildID+"/"+userID)
}

func (a *RecordingActions) UnbanMember(ctx context.Context, guildID, userID, reason string) error {
	return a.record(&a.Unbanned, guildID+"/"+userID)
}

func (a *RecordingActions) ApplyMuteRole(ctx context.Context, guildID, userID, reason string) error {
	return a.record(&a.MuteRoles, guildID+"/"+userID)
}

func (a *RecordingActions) RemoveMuteRole(ctx context.Context, guildID, userID, reason string) error {
	return a.record(&a.RemovedMutes, guildID+"/"+userID)
}

func (a *RecordingActions) RestoreMuteRole(ctx context.Context, guildID, userID, reason string) error {
	return a.record(&a.Restored, guildID+"/"+userID)
}

func (a *RecordingActions) SendDirectMessage(ctx context.Context, userID, content string) error {
	return a.record(&a.DMs, userID+": "+content)
}

func (a *RecordingActions) ResolveUser(ctx context.Context, userID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.Unresolvable[userID]
}

func (a *RecordingActions) CanKick(ctx context.Context, guildID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.DenyKick
}

func (a *RecordingActions) GetVerificationLevel(ctx context.Context, guildID string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.VerificationLevel, nil
}

func (a *RecordingActions) RaiseVerificationLevel(ctx context.Context, guildID, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Raised++
	return nil
}

func (a *RecordingActions) SetVerificationLevel(ctx context.Context, guildID string, level int, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.VerificationLevel = level
	a.LevelSets++
	return nil
}

// fakeInvites resolves codes from a fixed map. Missing codes fail; a code
// mapped to the empty string fails with ErrForbidden.
type fakeInvites struct {
	mu      sync.Mutex
	guilds  map[string]string
	lookups int
}

func (f *fakeInvites) Resolve(ctx context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	guildID, ok := f.guilds[code]
	if !ok {
		return "", fmt.Errorf("unknown invite %q", code)
	}
	if guildID == "" {
		return "", resolver.ErrForbidden
	}
	return guildID, nil
}

// recordingNotifier captures redirect chain notifications and discards the
// rest.
type recordingNotifier struct {
	notifier.Noop
	mu             sync.Mutex
	RedirectChains []string // "link -> last hop"
}

func (n *recordingNotifier) LogRedirectChain(ctx context.Context, guildID, channelID, messageID, link string, hops []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry := link
	if len(hops) > 0 {
		entry += " -> " + hops[len(hops)-1]
	}
	n.RedirectChains = append(n.RedirectChains, entry)
	return nil
}

// fakeRedirects maps a link to its hop chain.
type fakeRedirects struct {
	chains map[string][]string
}

func (f *fakeRedirects) FollowRedirects(ctx context.Context, link string) ([]string, error) {
	hops, ok := f.chains[link]
	if !ok {
		return nil, nil
	}
	return hops, nil
}

// TestFixture wires an engine against in-memory stores and recording
// actions for detector tests.
type TestFixture struct {
	Engine   *Engine
	Settings *settings.MemStore
	Strikes  *strikes.MemStore
	Actions  *RecordingActions
	Invites  *fakeInvites
	Chains   map[string][]string
	Notifier *recordingNotifier
}

func NewTestFixture() *TestFixture {
	acts := NewRecordingActions()
	settingsStore := settings.NewMemStore()
	strikeStore := strikes.NewMemStore()
	invites := &fakeInvites{guilds: map[string]string{}}
	chains := map[string][]string{}
	pastas := resolver.NewCopypastas()
	notes := &recordingNotifier{}

	eng := New(Config{
		Logger:          slog.Default(),
		Settings:        settingsStore,
		Strikes:         strikes.NewHandler(slog.Default(), strikeStore, acts, notifier.Noop{}),
		Actions:         acts,
		Invites:         invites,
		Redirects:       &fakeRedirects{chains: chains},
		Copypastas:      pastas,
		Notifier:        notes,
		SelfID:          "bot",
		ReferralDomains: []string{"linkvertise.com", "adf.ly"},
	})
	return &TestFixture{
		Engine:   eng,
		Settings: settingsStore,
		Strikes:  strikeStore,
		Actions:  acts,
		Invites:  invites,
		Chains:   chains,
		Notifier: notes,
	}
}

// Message builds an eligible message event with sane defaults.
func (f *TestFixture) Message(guildID, authorID, content string) *MessageEvent {
	return &MessageEvent{
		GuildID:        guildID,
		ChannelID:      "chan1",
		MessageID:      fmt.Sprintf("msg%d", time.Now().UnixNano()),
		AuthorID:       authorID,
		MemberResolved: true,
		CanInteract:    true,
		Content:        content,
		Timestamp:      time.Now(),
	}
}
