package gateway

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

// Client is the action surface of the platform gateway. The ticket
// control surface, media cache, and audit emitter depend on this
// interface only; the discordgo session stays behind it.
type Client interface {
	CreateChannel(ctx context.Context, guildID string, params ChannelCreate) (*ChannelRef, error)
	EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error
	DeleteChannel(ctx context.Context, channelID string) error

	SetPermission(ctx context.Context, channelID string, overwrite PermissionOverwrite) error
	RemovePermission(ctx context.Context, channelID, targetID string) error

	SendMessage(ctx context.Context, channelID string, msg Outbound) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg Outbound) error
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error

	GuildMember(ctx context.Context, guildID, userID string) (*Member, error)
	GuildMembers(ctx context.Context, guildID string, limit int) ([]Member, error)
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error
}

// IsMissingAccess reports whether err is the platform's "missing
// access" rejection, expected when the agent cannot see a channel in a
// multi-workspace deployment.
func IsMissingAccess(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeMissingAccess
	}
	return false
}
