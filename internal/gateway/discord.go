package gateway

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordClient implements Client on top of a discordgo session.
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient wraps an opened session.
func NewDiscordClient(session *discordgo.Session) *DiscordClient {
	return &DiscordClient{session: session}
}

// CreateChannel creates a guild text channel with the given overwrites.
func (c *DiscordClient) CreateChannel(ctx context.Context, guildID string, params ChannelCreate) (*ChannelRef, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 params.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                params.Topic,
		ParentID:             params.ParentID,
		PermissionOverwrites: toOverwrites(params.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &ChannelRef{ID: ch.ID, Name: ch.Name}, nil
}

// EditChannel patches name/topic/parent and optionally replaces overwrites.
func (c *DiscordClient) EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{
		Name:                 edit.Name,
		Topic:                edit.Topic,
		ParentID:             edit.ParentID,
		PermissionOverwrites: toOverwrites(edit.Overwrites),
	}, discordgo.WithContext(ctx))
	return err
}

// DeleteChannel removes the channel.
func (c *DiscordClient) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

// SetPermission creates or patches a single permission overwrite.
func (c *DiscordClient) SetPermission(ctx context.Context, channelID string, overwrite PermissionOverwrite) error {
	return c.session.ChannelPermissionSet(channelID, overwrite.ID,
		discordgo.PermissionOverwriteType(overwrite.Type),
		overwrite.Allow, overwrite.Deny, discordgo.WithContext(ctx))
}

// RemovePermission deletes a target's overwrite.
func (c *DiscordClient) RemovePermission(ctx context.Context, channelID, targetID string) error {
	return c.session.ChannelPermissionDelete(channelID, targetID, discordgo.WithContext(ctx))
}

// SendMessage sends content, embeds, components and files to a channel.
func (c *DiscordClient) SendMessage(ctx context.Context, channelID string, msg Outbound) (string, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Components),
		Files:      toFiles(msg.Files),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

// EditMessage replaces embeds and components of an existing message.
func (c *DiscordClient) EditMessage(ctx context.Context, channelID, messageID string, msg Outbound) error {
	embeds := toEmbeds(msg.Embeds)
	components := toComponents(msg.Components)
	edit := &discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &embeds,
		Components: &components,
	}
	if msg.Content != "" {
		edit.Content = &msg.Content
	}
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

// RecentMessages fetches up to limit messages, newest first.
func (c *DiscordClient) RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		tag := ""
		authorID := ""
		if m.Author != nil {
			tag = m.Author.String()
			authorID = m.Author.ID
		}
		out = append(out, Message{
			ID:              m.ID,
			AuthorID:        authorID,
			AuthorTag:       tag,
			Content:         m.Content,
			Timestamp:       m.Timestamp,
			AttachmentCount: len(m.Attachments),
		})
	}
	return out, nil
}

// BulkDeleteMessages removes up to 100 recent messages at once.
func (c *DiscordClient) BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	return c.session.ChannelMessagesBulkDelete(channelID, messageIDs, discordgo.WithContext(ctx))
}

// GuildMember fetches one member.
func (c *DiscordClient) GuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	member := toMember(m)
	return &member, nil
}

// GuildMembers lists up to limit members.
func (c *DiscordClient) GuildMembers(ctx context.Context, guildID string, limit int) ([]Member, error) {
	ms, err := c.session.GuildMembers(guildID, "", limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMember(m))
	}
	return out, nil
}

// AddMemberRole grants a role.
func (c *DiscordClient) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// RemoveMemberRole revokes a role.
func (c *DiscordClient) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func toMember(m *discordgo.Member) Member {
	member := Member{RoleIDs: m.Roles}
	if m.User != nil {
		member.ID = m.User.ID
		member.Tag = m.User.String()
		member.Bot = m.User.Bot
	}
	return member
}

func toOverwrites(overwrites []PermissionOverwrite) []*discordgo.PermissionOverwrite {
	if overwrites == nil {
		return nil
	}
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    o.ID,
			Type:  discordgo.PermissionOverwriteType(o.Type),
			Allow: o.Allow,
			Deny:  o.Deny,
		})
	}
	return out
}

func toEmbeds(embeds []Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if !e.Timestamp.IsZero() {
			embed.Timestamp = e.Timestamp.Format(time.RFC3339)
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: f.Inline,
			})
		}
		out = append(out, embed)
	}
	return out
}

func toComponents(rows []ActionRow) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var inner []discordgo.MessageComponent
		if row.Select != nil {
			inner = append(inner, toSelectMenu(*row.Select))
		}
		for _, b := range row.Buttons {
			inner = append(inner, discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    discordgo.ButtonStyle(b.Style),
			})
		}
		out = append(out, discordgo.ActionsRow{Components: inner})
	}
	return out
}

func toSelectMenu(menu SelectMenu) discordgo.SelectMenu {
	minValues := menu.MinValues
	sm := discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    menu.CustomID,
		Placeholder: menu.Placeholder,
		MinValues:   &minValues,
		MaxValues:   menu.MaxValues,
	}
	for _, opt := range menu.Options {
		option := discordgo.SelectMenuOption{
			Label:       opt.Label,
			Value:       opt.Value,
			Description: opt.Description,
		}
		if opt.Emoji != "" {
			option.Emoji = &discordgo.ComponentEmoji{Name: opt.Emoji}
		}
		sm.Options = append(sm.Options, option)
	}
	return sm
}

func toFiles(files []File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      f.Reader,
		})
	}
	return out
}
