package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/domain"
	"github.com/spec-kit/community-agent/internal/events"
	"github.com/spec-kit/community-agent/internal/gateway"
	"github.com/spec-kit/community-agent/internal/service"
)

const defaultPanelColor = 0x2b2d31

// RegisterCommands overwrites the application command set. Commands are
// scoped to the configured guild when one is set, otherwise global.
func (b *Bot) RegisterCommands() error {
	manageGuild := int64(discordgo.PermissionManageServer)
	manageMessages := int64(discordgo.PermissionManageMessages)
	minAmount := float64(1)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "panel",
			Description:              "Create and post a panel embed",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Post a panel embed in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "type",
							Description: "Type of panel to post",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "rules", Value: "rules"},
								{Name: "info", Value: "info"},
								{Name: "ticket", Value: "ticket"},
								{Name: "custom", Value: "custom"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "title",
							Description: "Title for the embed (not used for ticket)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "description",
							Description: "Description for the embed (not used for ticket)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "color",
							Description: "Hex color like #2b2d31",
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Target channel to post in",
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
								discordgo.ChannelTypeGuildNews,
							},
						},
					},
				},
			},
		},
		{
			Name:                     "purge",
			Description:              "Delete a number of recent messages in this channel",
			DefaultMemberPermissions: &manageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of messages to delete (1-100)",
					Required:    true,
					MinValue:    &minAmount,
					MaxValue:    100,
				},
			},
		},
	}

	appID := b.session.State.User.ID
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.Discord.GuildID, commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.logger.Info("registered application commands", zap.Int("count", len(commands)))
	return nil
}

func (b *Bot) handlePanel(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || data.Options[0].Name != "create" {
		b.replyEphemeral(i, "Unsupported subcommand.")
		return
	}

	req := parsePanelOptions(data.Options[0].Options)
	panelType, title, description := req.panelType, req.title, req.description
	channelID := req.channelID
	if channelID == "" {
		channelID = i.ChannelID
	}
	color := parseHexColor(req.colorHex)

	ctx := context.Background()
	if panelType == "ticket" {
		out := gateway.Outbound{
			Embeds: []gateway.Embed{{
				Title:       "Create a Ticket",
				Description: "Need help? Click the button below to open a private ticket with the staff team.",
				Color:       color,
				Timestamp:   time.Now(),
			}},
			Components: []gateway.ActionRow{{
				Buttons: []gateway.Button{{
					CustomID: service.ControlOpen,
					Label:    "Open Ticket",
					Style:    gateway.ButtonPrimary,
				}},
			}},
		}
		if _, err := b.gw.SendMessage(ctx, channelID, out); err != nil {
			b.logger.Error("failed to post ticket panel", zap.Error(err))
			b.replyEphemeral(i, "Failed to post the panel. Check bot permissions.")
			return
		}
		b.replyEphemeral(i, fmt.Sprintf("Ticket panel posted in <#%s>", channelID))
		return
	}

	embed := gateway.Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now(),
	}
	switch panelType {
	case "rules":
		if embed.Title == "" {
			embed.Title = "Server Rules"
		}
		if embed.Description == "" {
			embed.Description = "1) Be respectful\n2) No spam or advertising\n3) Follow Discord ToS"
		}
	case "info":
		if embed.Title == "" {
			embed.Title = "Information"
		}
		if embed.Description == "" {
			embed.Description = "Welcome to the server! Use the channels on the left to navigate."
		}
	}

	if _, err := b.gw.SendMessage(ctx, channelID, gateway.Outbound{Embeds: []gateway.Embed{embed}}); err != nil {
		b.logger.Error("failed to post panel", zap.Error(err))
		b.replyEphemeral(i, "Failed to post the panel. Check bot permissions.")
		return
	}
	b.replyEphemeral(i, fmt.Sprintf("Panel posted in <#%s>", channelID))
}

func (b *Bot) handlePurge(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	amount := int(data.Options[0].IntValue())

	ctx := context.Background()
	messages, err := b.gw.RecentMessages(ctx, i.ChannelID, amount)
	if err != nil {
		b.logger.Error("failed to fetch messages for purge", zap.Error(err))
		b.replyEphemeral(i, "Failed to delete messages. Note: I cannot delete messages older than 14 days, and I need Manage Messages permission.")
		return
	}

	// Bulk deletion rejects messages older than 14 days.
	cutoff := time.Now().Add(-14 * 24 * time.Hour)
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Timestamp.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) > 0 {
		if err := b.gw.BulkDeleteMessages(ctx, i.ChannelID, ids); err != nil {
			b.logger.Error("failed to bulk delete messages", zap.Error(err))
			b.replyEphemeral(i, "Failed to delete messages. Note: I cannot delete messages older than 14 days, and I need Manage Messages permission.")
			return
		}
	}

	b.replyEphemeral(i, fmt.Sprintf("Deleted %d messages.", len(ids)))
	b.publishAs(b.actor(i).User, events.EventMessagesPurged, events.MessagesPurgedPayload{
		ChannelID: i.ChannelID,
		Count:     len(ids),
	})
}

// publishAs attributes the event to the invoking user.
func (b *Bot) publishAs(actor domain.UserRef, eventType events.EventType, payload interface{}) {
	if b.bus == nil {
		return
	}
	_ = b.bus.Publish(context.Background(), events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

type panelRequest struct {
	panelType   string
	title       string
	description string
	colorHex    string
	channelID   string
}

// parsePanelOptions reads the create subcommand's options. Every value
// is checked with a comma-ok assertion; a malformed payload yields an
// empty field instead of a panic.
func parsePanelOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) panelRequest {
	var req panelRequest
	for _, opt := range opts {
		v, ok := opt.Value.(string)
		if !ok {
			continue
		}
		switch opt.Name {
		case "type":
			req.panelType = v
		case "title":
			req.title = v
		case "description":
			req.description = v
		case "color":
			req.colorHex = v
		case "channel":
			req.channelID = v
		}
	}
	return req
}

func parseHexColor(hex string) int {
	if hex == "" {
		return defaultPanelColor
	}
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 64)
	if err != nil {
		return defaultPanelColor
	}
	return int(v)
}
