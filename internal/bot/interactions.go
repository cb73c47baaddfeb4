package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/domain"
	"github.com/spec-kit/community-agent/internal/gateway"
	"github.com/spec-kit/community-agent/internal/service"
	"github.com/spec-kit/community-agent/pkg/util"
)

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		b.replyEphemeral(i, "This can only be used in a server.")
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "panel":
			b.handlePanel(i)
		case "purge":
			b.handlePurge(i)
		}
	case discordgo.InteractionMessageComponent:
		b.handleComponent(i)
	case discordgo.InteractionModalSubmit:
		b.handleModalSubmit(i)
	}
}

func (b *Bot) handleComponent(i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	switch data.CustomID {
	case service.ControlOpen:
		b.showReasonModal(i)
	case service.ControlClaim:
		_, err := b.tickets.Claim(context.Background(), i.ChannelID, b.actor(i))
		b.ackResult(i, "Ticket claimed successfully!", err)
	case service.ControlUnclaim:
		_, err := b.tickets.Unclaim(context.Background(), i.ChannelID, b.actor(i))
		b.ackResult(i, "Ticket unclaimed successfully!", err)
	case service.ControlRename:
		b.showRenameModal(i)
	case service.ControlAddMember:
		b.showMemberSelect(i, service.ControlMemberSelect, "Select a member to add:", true)
	case service.ControlRemoveMember:
		b.showMemberSelect(i, service.ControlMemberRemoveSelect, "Select a member to remove:", false)
	case service.ControlMemberSelect:
		ref, err := b.tickets.AddMember(context.Background(), i.ChannelID, b.actor(i), data.Values[0])
		b.updateResult(i, fmt.Sprintf("✅ Added %s to the ticket!", ref.Tag), err)
	case service.ControlMemberRemoveSelect:
		ref, err := b.tickets.RemoveMember(context.Background(), i.ChannelID, b.actor(i), data.Values[0])
		b.updateResult(i, fmt.Sprintf("✅ Removed %s from the ticket!", ref.Tag), err)
	case service.ControlCloseSelect:
		b.handleClose(i, domain.CloseDisposition(data.Values[0]))
	}
}

func (b *Bot) handleModalSubmit(i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	switch data.CustomID {
	case service.ControlReasonModal:
		reason := textInputValue(data, "ticket_reason")
		ticket, err := b.tickets.Open(context.Background(), i.GuildID, b.actor(i).User, reason)
		if err != nil {
			b.replyEphemeral(i, util.UserMessage(err))
			return
		}
		b.replyEphemeral(i, fmt.Sprintf("Ticket #%d created: <#%s>", ticket.Number, ticket.ChannelID))
	case service.ControlRenameModal:
		newName := textInputValue(data, "ticket_new_name")
		err := b.tickets.Rename(context.Background(), i.ChannelID, b.actor(i), newName)
		b.ackResult(i, fmt.Sprintf("Ticket renamed to: %s", newName), err)
	}
}

func (b *Bot) handleClose(i *discordgo.InteractionCreate, disposition domain.CloseDisposition) {
	outcome, err := b.tickets.Close(context.Background(), i.ChannelID, b.actor(i), disposition)
	if err != nil {
		b.replyEphemeral(i, util.UserMessage(err))
		return
	}
	if outcome.Archived {
		b.replyEphemeral(i, fmt.Sprintf("Ticket %s and archived successfully!", disposition))
		return
	}
	b.replyEphemeral(i, fmt.Sprintf("Closing ticket as %s in %d seconds…",
		disposition, b.cfg.Ticket.DeleteDelaySecs))
}

func (b *Bot) showReasonModal(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: service.ControlReasonModal,
			Title:    "Ticket Reason",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "ticket_reason",
						Label:       "Why are you opening this ticket?",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Please describe your issue or question...",
						Required:    true,
						MaxLength:   1000,
					},
				}},
			},
		},
	})
	if err != nil {
		b.logger.Warn("failed to show reason modal", zap.Error(err))
	}
}

func (b *Bot) showRenameModal(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: service.ControlRenameModal,
			Title:    "Rename Ticket",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "ticket_new_name",
						Label:       "New Ticket Name",
						Style:       discordgo.TextInputShort,
						Placeholder: "Enter new ticket name...",
						Required:    true,
						MaxLength:   100,
					},
				}},
			},
		},
	})
	if err != nil {
		b.logger.Warn("failed to show rename modal", zap.Error(err))
	}
}

func (b *Bot) showMemberSelect(i *discordgo.InteractionCreate, customID, prompt string, add bool) {
	var candidates []gateway.Member
	var err error
	if add {
		candidates, err = b.tickets.AddMemberCandidates(context.Background(), i.ChannelID, b.actor(i))
	} else {
		candidates, err = b.tickets.RemoveMemberCandidates(context.Background(), i.ChannelID, b.actor(i))
	}
	if err != nil {
		b.replyEphemeral(i, util.UserMessage(err))
		return
	}
	if len(candidates) == 0 {
		b.replyEphemeral(i, "No members to select.")
		return
	}

	minValues := 1
	options := make([]discordgo.SelectMenuOption, 0, len(candidates))
	for _, m := range candidates {
		options = append(options, discordgo.SelectMenuOption{
			Label:       m.Tag,
			Value:       m.ID,
			Description: "ID: " + m.ID,
		})
	}
	err = b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: prompt,
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    customID,
						Placeholder: prompt,
						MinValues:   &minValues,
						MaxValues:   1,
						Options:     options,
					},
				}},
			},
		},
	})
	if err != nil {
		b.logger.Warn("failed to show member select", zap.Error(err))
	}
}

func (b *Bot) actor(i *discordgo.InteractionCreate) service.Actor {
	actor := service.Actor{}
	if i.Member != nil && i.Member.User != nil {
		actor.User = domain.UserRef{ID: i.Member.User.ID, Tag: i.Member.User.String()}
		actor.RoleIDs = i.Member.Roles
	} else if i.User != nil {
		actor.User = domain.UserRef{ID: i.User.ID, Tag: i.User.String()}
	}
	return actor
}

// ackResult sends the single ephemeral acknowledgment for a component
// or modal interaction: success text, or the rejection reason.
func (b *Bot) ackResult(i *discordgo.InteractionCreate, success string, err error) {
	if err != nil {
		b.replyEphemeral(i, util.UserMessage(err))
		return
	}
	b.replyEphemeral(i, success)
}

// updateResult edits the ephemeral select prompt in place, clearing the
// components so the menu cannot be reused.
func (b *Bot) updateResult(i *discordgo.InteractionCreate, success string, err error) {
	content := success
	if err != nil {
		content = util.UserMessage(err)
	}
	respErr := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if respErr != nil {
		b.logger.Warn("failed to update interaction", zap.Error(respErr))
	}
}

func (b *Bot) replyEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("failed to reply to interaction", zap.Error(err))
	}
}

func textInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range actionsRow.Components {
			if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
