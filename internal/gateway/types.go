package gateway

import (
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Channel permission bits used by the ticket workflow.
const (
	PermViewChannel    = discordgo.PermissionViewChannel
	PermSendMessages   = discordgo.PermissionSendMessages
	PermReadHistory    = discordgo.PermissionReadMessageHistory
	PermManageMessages = discordgo.PermissionManageMessages
)

// OverwriteType distinguishes role and member permission overwrites.
type OverwriteType int

const (
	OverwriteRole   OverwriteType = OverwriteType(discordgo.PermissionOverwriteTypeRole)
	OverwriteMember OverwriteType = OverwriteType(discordgo.PermissionOverwriteTypeMember)
)

// PermissionOverwrite grants or denies channel permissions to one target.
type PermissionOverwrite struct {
	ID    string
	Type  OverwriteType
	Allow int64
	Deny  int64
}

// ChannelCreate describes a private channel to create.
type ChannelCreate struct {
	Name       string
	ParentID   string
	Topic      string
	Overwrites []PermissionOverwrite
}

// ChannelEdit patches channel metadata. Empty string fields are left
// unchanged; a non-nil Overwrites slice replaces the full overwrite set.
type ChannelEdit struct {
	Name       string
	Topic      string
	ParentID   string
	Overwrites []PermissionOverwrite
}

// ChannelRef identifies a created channel.
type ChannelRef struct {
	ID   string
	Name string
}

// ButtonStyle selects the rendering of an interactive button.
type ButtonStyle int

const (
	ButtonPrimary   ButtonStyle = ButtonStyle(discordgo.PrimaryButton)
	ButtonSecondary ButtonStyle = ButtonStyle(discordgo.SecondaryButton)
)

// Button is an interactive control identified by its custom id.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// SelectOption is one entry of a selection menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// SelectMenu is a single-row selection control.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	MinValues   int
	MaxValues   int
	Options     []SelectOption
}

// ActionRow holds either a set of buttons or one selection menu.
type ActionRow struct {
	Buttons []Button
	Select  *SelectMenu
}

// EmbedField is a named field inside a structured notification.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a structured notification body.
type Embed struct {
	Title       string
	Description string
	Color       int
	Timestamp   time.Time
	Fields      []EmbedField
}

// File attaches binary content to an outbound message.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// Outbound is a message to send or an edit to apply.
type Outbound struct {
	Content    string
	Embeds     []Embed
	Components []ActionRow
	Files      []File
}

// Message is a fetched channel message, reduced to what transcripts need.
type Message struct {
	ID              string
	AuthorID        string
	AuthorTag       string
	Content         string
	Timestamp       time.Time
	AttachmentCount int
}

// Member is a guild member as seen by selection menus and role grants.
type Member struct {
	ID      string
	Tag     string
	Bot     bool
	RoleIDs []string
}
