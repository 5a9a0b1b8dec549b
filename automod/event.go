package automod

import (
	"time"
)

// Permissions carries the author permission bits the eligibility filter
// cares about. Any of them set exempts the author from automod.
type Permissions struct {
	KickMembers    bool
	BanMembers     bool
	ManageGuild    bool
	ManageMessages bool
}

type Mention struct {
	UserID string
	Bot    bool
}

// MessageEvent is one inbound chat message (or edit) plus the
// caller-supplied eligibility signals. The platform adapter fills the
// signals from gateway state so the engine itself stays platform-agnostic.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string

	AuthorBot bool
	// whether the author is still resolvable as a guild member
	MemberResolved bool
	// whether the service can permission-interact with the author
	CanInteract bool
	AuthorPerms Permissions

	Content      string
	Attachments  []string // filenames only
	UserMentions []Mention
	RoleMentions []string
	ChannelTopic string

	// edit timestamp for edited messages, creation timestamp otherwise
	Timestamp time.Time
}

// JoinEvent is one member-join attempt.
type JoinEvent struct {
	GuildID   string
	GuildName string
	UserID    string
	Bot       bool
	JoinedAt  time.Time
}
