package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/config"
	"github.com/spec-kit/community-agent/internal/domain"
	"github.com/spec-kit/community-agent/internal/events"
	"github.com/spec-kit/community-agent/internal/gateway"
	"github.com/spec-kit/community-agent/internal/registry"
	"github.com/spec-kit/community-agent/pkg/util"
)

// Custom identifiers of the interactive ticket controls.
const (
	ControlOpen               = "ticket_open"
	ControlReasonModal        = "ticket_reason_modal"
	ControlClaim              = "ticket_claim"
	ControlUnclaim            = "ticket_unclaim"
	ControlRename             = "ticket_rename"
	ControlRenameModal        = "ticket_rename_modal"
	ControlAddMember          = "ticket_add_member"
	ControlMemberSelect       = "ticket_member_select"
	ControlRemoveMember       = "ticket_remove_member"
	ControlMemberRemoveSelect = "ticket_member_remove_select"
	ControlCloseSelect        = "ticket_close_select"
)

const memberSelectLimit = 25

// Actor is the invoking user plus their guild roles, as reported by the
// interaction event.
type Actor struct {
	User    domain.UserRef
	RoleIDs []string
}

// TicketService coordinates the ticket workflow: registry state, channel
// and permission mutations through the gateway, and event publication.
type TicketService struct {
	registry *registry.Registry
	gw       gateway.Client
	bus      events.Dispatcher
	logger   *zap.Logger
	cfg      config.TicketConfig
	locks    *util.KeyedMutex
	now      func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Registry   *registry.Registry
	Gateway    gateway.Client
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CloseOutcome reports what the close operation managed to do.
type CloseOutcome struct {
	Ticket       *domain.Ticket
	Disposition  domain.CloseDisposition
	Archived     bool
	TranscriptOK bool
	RoleGranted  bool
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketConfig, deps TicketDependencies) *TicketService {
	return &TicketService{
		registry: deps.Registry,
		gw:       deps.Gateway,
		bus:      deps.Dispatcher,
		logger:   deps.Logger,
		cfg:      cfg,
		locks:    util.NewKeyedMutex(),
		now:      time.Now,
	}
}

// Open creates a ticket for the opener: duplicate and cooldown checks,
// number allocation, private channel creation, control message, audit.
func (s *TicketService) Open(ctx context.Context, guildID string, opener domain.UserRef, reason string) (*domain.Ticket, error) {
	unlock := s.locks.Lock("opener:" + opener.ID)
	defer unlock()

	if existing := s.registry.Active(opener.ID); existing != nil {
		return nil, util.NewDuplicateTicket(existing.ChannelID)
	}
	if remaining := s.registry.CooldownRemaining(opener.ID, s.cfg.Cooldown(), s.now()); remaining > 0 {
		return nil, util.NewCooldownActive(remaining)
	}

	number := s.registry.NextNumber(guildID)
	name := fmt.Sprintf("ticket-%d", number)

	overwrites := []gateway.PermissionOverwrite{
		{ID: guildID, Type: gateway.OverwriteRole, Deny: gateway.PermViewChannel},
		{ID: opener.ID, Type: gateway.OverwriteMember,
			Allow: gateway.PermViewChannel | gateway.PermSendMessages | gateway.PermReadHistory},
	}
	if s.cfg.StaffRoleID != "" {
		overwrites = append(overwrites, gateway.PermissionOverwrite{
			ID:   s.cfg.StaffRoleID,
			Type: gateway.OverwriteRole,
			Allow: gateway.PermViewChannel | gateway.PermSendMessages |
				gateway.PermReadHistory | gateway.PermManageMessages,
		})
	}

	ch, err := s.gw.CreateChannel(ctx, guildID, gateway.ChannelCreate{
		Name:       name,
		ParentID:   s.cfg.CategoryID,
		Topic:      fmt.Sprintf("Ticket #%d | Opener: %s | Reason: %s", number, opener.ID, reason),
		Overwrites: overwrites,
	})
	if err != nil {
		return nil, util.NewPlatformFailure("Failed to create the ticket channel.", err)
	}

	ticket := &domain.Ticket{
		Number:      number,
		GuildID:     guildID,
		Opener:      opener,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Status:      domain.TicketStatusOpen,
		Members:     []string{opener.ID},
		Reason:      reason,
		CreatedAt:   s.now(),
	}

	msgID, err := s.gw.SendMessage(ctx, ch.ID, gateway.Outbound{
		Content:    fmt.Sprintf("<@%s>", opener.ID),
		Embeds:     []gateway.Embed{s.controlEmbed(ticket)},
		Components: s.controlRows(false),
	})
	if err != nil {
		s.logger.Warn("failed to post ticket control message",
			zap.String("channel_id", ch.ID), zap.Error(err))
	}
	ticket.ControlMessageID = msgID

	s.registry.Put(ticket)

	s.publish(ctx, events.EventTicketCreated, opener, events.TicketCreatedPayload{
		Number:      number,
		Opener:      opener,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Reason:      reason,
	})
	return ticket, nil
}

// Claim marks the ticket as worked by the acting staff member.
func (s *TicketService) Claim(ctx context.Context, channelID string, actor Actor) (*domain.Ticket, error) {
	if !s.isStaff(actor) {
		return nil, util.NewPermissionDenied("You do not have permission to claim tickets.")
	}
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return nil, util.NewInvalidTarget()
	}
	if ticket.ClaimedBy != nil {
		return nil, util.NewInvalidState("This ticket is already claimed.")
	}

	staff := actor.User
	ticket.ClaimedBy = &staff
	ticket.Status = domain.TicketStatusClaimed

	s.updateChannelState(ctx, ticket)
	s.postNotice(ctx, ticket, fmt.Sprintf("🎯 Ticket claimed by %s", staff.Tag), true)

	s.publish(ctx, events.EventTicketClaimed, staff, events.TicketClaimPayload{
		Number:    ticket.Number,
		ChannelID: channelID,
		Staff:     staff,
	})
	return ticket, nil
}

// Unclaim releases the ticket. Only the current claimer may unclaim.
func (s *TicketService) Unclaim(ctx context.Context, channelID string, actor Actor) (*domain.Ticket, error) {
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return nil, util.NewInvalidTarget()
	}
	if ticket.ClaimedBy == nil || ticket.ClaimedBy.ID != actor.User.ID {
		return nil, util.NewPermissionDenied("You can only unclaim tickets that you claimed.")
	}

	staff := actor.User
	ticket.ClaimedBy = nil
	ticket.Status = domain.TicketStatusOpen

	s.updateChannelState(ctx, ticket)
	s.postNotice(ctx, ticket, fmt.Sprintf("🔓 Ticket unclaimed by %s", staff.Tag), true)

	s.publish(ctx, events.EventTicketUnclaimed, staff, events.TicketClaimPayload{
		Number:    ticket.Number,
		ChannelID: channelID,
		Staff:     staff,
	})
	return ticket, nil
}

// Rename applies a new channel name. Platform rejection is surfaced to
// the caller, not fatal.
func (s *TicketService) Rename(ctx context.Context, channelID string, actor Actor, newName string) error {
	if !s.isStaff(actor) {
		return util.NewPermissionDenied("You do not have permission to rename tickets.")
	}
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return util.NewInvalidTarget()
	}

	if err := s.gw.EditChannel(ctx, channelID, gateway.ChannelEdit{Name: newName}); err != nil {
		return util.NewPlatformFailure("Failed to rename ticket. Check bot permissions.", err)
	}
	ticket.ChannelName = newName

	s.publish(ctx, events.EventTicketRenamed, actor.User, events.TicketRenamedPayload{
		Number:    ticket.Number,
		ChannelID: channelID,
		NewName:   newName,
	})
	return nil
}

// AddMemberCandidates lists up to 25 guild members eligible to be added:
// no bots, no one already on the ticket (the opener included).
func (s *TicketService) AddMemberCandidates(ctx context.Context, channelID string, actor Actor) ([]gateway.Member, error) {
	if !s.isStaff(actor) {
		return nil, util.NewPermissionDenied("You do not have permission to add members to tickets.")
	}
	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return nil, util.NewInvalidTarget()
	}

	members, err := s.gw.GuildMembers(ctx, ticket.GuildID, 1000)
	if err != nil {
		return nil, util.NewPlatformFailure("Failed to list server members.", err)
	}
	candidates := make([]gateway.Member, 0, memberSelectLimit)
	for _, m := range members {
		if m.Bot || ticket.HasMember(m.ID) {
			continue
		}
		candidates = append(candidates, m)
		if len(candidates) == memberSelectLimit {
			break
		}
	}
	return candidates, nil
}

// RemoveMemberCandidates lists the ticket's removable members: everyone
// granted extra access except the opener.
func (s *TicketService) RemoveMemberCandidates(ctx context.Context, channelID string, actor Actor) ([]gateway.Member, error) {
	if !s.isStaff(actor) {
		return nil, util.NewPermissionDenied("You do not have permission to remove members from tickets.")
	}
	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return nil, util.NewInvalidTarget()
	}

	candidates := make([]gateway.Member, 0, memberSelectLimit)
	for _, id := range ticket.Members {
		if id == ticket.Opener.ID {
			continue
		}
		member := gateway.Member{ID: id, Tag: id}
		if m, err := s.gw.GuildMember(ctx, ticket.GuildID, id); err == nil {
			member = *m
		}
		candidates = append(candidates, member)
		if len(candidates) == memberSelectLimit {
			break
		}
	}
	return candidates, nil
}

// AddMember grants a member access to the ticket channel.
func (s *TicketService) AddMember(ctx context.Context, channelID string, actor Actor, memberID string) (domain.UserRef, error) {
	if !s.isStaff(actor) {
		return domain.UserRef{}, util.NewPermissionDenied("You do not have permission to add members to tickets.")
	}
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return domain.UserRef{}, util.NewInvalidTarget()
	}

	m, err := s.gw.GuildMember(ctx, ticket.GuildID, memberID)
	if err != nil {
		return domain.UserRef{}, util.NewNotFound("Member")
	}
	if err := s.gw.SetPermission(ctx, channelID, gateway.PermissionOverwrite{
		ID:    memberID,
		Type:  gateway.OverwriteMember,
		Allow: gateway.PermViewChannel | gateway.PermSendMessages | gateway.PermReadHistory,
	}); err != nil {
		return domain.UserRef{}, util.NewPlatformFailure("Failed to add the member to the ticket.", err)
	}
	if !ticket.HasMember(memberID) {
		ticket.Members = append(ticket.Members, memberID)
	}

	ref := domain.UserRef{ID: m.ID, Tag: m.Tag}
	s.postNotice(ctx, ticket, fmt.Sprintf("👥 **%s** has been added to this ticket.", ref.Tag), false)
	s.publish(ctx, events.EventTicketMemberAdded, actor.User, events.TicketMemberPayload{
		Number:    ticket.Number,
		ChannelID: channelID,
		Member:    ref,
	})
	return ref, nil
}

// RemoveMember revokes a member's access to the ticket channel.
func (s *TicketService) RemoveMember(ctx context.Context, channelID string, actor Actor, memberID string) (domain.UserRef, error) {
	if !s.isStaff(actor) {
		return domain.UserRef{}, util.NewPermissionDenied("You do not have permission to remove members from tickets.")
	}
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return domain.UserRef{}, util.NewInvalidTarget()
	}
	if memberID == ticket.Opener.ID || !ticket.HasMember(memberID) {
		return domain.UserRef{}, util.NewNotFound("Member")
	}

	if err := s.gw.RemovePermission(ctx, channelID, memberID); err != nil {
		return domain.UserRef{}, util.NewPlatformFailure("Failed to remove the member from the ticket.", err)
	}
	kept := ticket.Members[:0]
	for _, id := range ticket.Members {
		if id != memberID {
			kept = append(kept, id)
		}
	}
	ticket.Members = kept

	ref := domain.UserRef{ID: memberID, Tag: memberID}
	if m, err := s.gw.GuildMember(ctx, ticket.GuildID, memberID); err == nil {
		ref.Tag = m.Tag
	}
	s.postNotice(ctx, ticket, fmt.Sprintf("👥 **%s** has been removed from this ticket.", ref.Tag), false)
	s.publish(ctx, events.EventTicketMemberRemoved, actor.User, events.TicketMemberPayload{
		Number:    ticket.Number,
		ChannelID: channelID,
		Member:    ref,
	})
	return ref, nil
}

// Close finishes the ticket: transcript, optional resolved role,
// archive with delete fallback. The registry entry is removed no matter
// what the downstream actions do.
func (s *TicketService) Close(ctx context.Context, channelID string, actor Actor, disposition domain.CloseDisposition) (*CloseOutcome, error) {
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	ticket := s.registry.ByChannel(channelID)
	if ticket == nil {
		return nil, util.NewInvalidTarget()
	}
	if !s.isStaff(actor) && actor.User.ID != ticket.Opener.ID {
		return nil, util.NewPermissionDenied("Only staff, owners, or the ticket opener can close this ticket.")
	}

	closer := actor.User
	closedAt := s.now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedBy = &closer
	ticket.ClosedAt = &closedAt
	if disposition == domain.CloseDispositionResolved {
		ticket.CloseReason = "Resolved successfully"
	} else {
		ticket.CloseReason = "Declined/not resolved"
	}
	s.registry.Remove(ticket.Opener.ID, ticket.ChannelID)

	roleGranted := false
	if disposition == domain.CloseDispositionResolved && s.cfg.ResolvedRoleID != "" {
		if err := s.gw.AddMemberRole(ctx, ticket.GuildID, ticket.Opener.ID, s.cfg.ResolvedRoleID); err != nil {
			s.logger.Warn("failed to assign resolved role",
				zap.String("user_id", ticket.Opener.ID), zap.Error(err))
		} else {
			roleGranted = true
		}
	}

	transcript, transcriptOK := s.buildTranscript(ctx, channelID)

	archived := s.archive(ctx, ticket)
	if !archived {
		s.scheduleDelete(channelID, string(disposition))
	}

	s.publish(ctx, events.EventTicketClosed, closer, events.TicketClosedPayload{
		Number:       ticket.Number,
		Opener:       ticket.Opener,
		ClosedBy:     closer,
		ChannelID:    channelID,
		ChannelName:  ticket.ChannelName,
		Disposition:  disposition,
		Archived:     archived,
		Transcript:   transcript,
		TranscriptOK: transcriptOK,
		RoleGranted:  roleGranted,
	})
	return &CloseOutcome{
		Ticket:       ticket,
		Disposition:  disposition,
		Archived:     archived,
		TranscriptOK: transcriptOK,
		RoleGranted:  roleGranted,
	}, nil
}

// IsStaff reports whether the actor holds the staff role or is the
// configured owner.
func (s *TicketService) IsStaff(actor Actor) bool {
	return s.isStaff(actor)
}

// TicketFor resolves the ticket for an interaction channel, or nil.
func (s *TicketService) TicketFor(channelID string) *domain.Ticket {
	return s.registry.ByChannel(channelID)
}

func (s *TicketService) isStaff(actor Actor) bool {
	if s.cfg.OwnerID != "" && actor.User.ID == s.cfg.OwnerID {
		return true
	}
	if s.cfg.StaffRoleID == "" {
		return false
	}
	for _, id := range actor.RoleIDs {
		if id == s.cfg.StaffRoleID {
			return true
		}
	}
	return false
}

// updateChannelState refreshes the topic and the control message after
// a claim state change. Both are best-effort.
func (s *TicketService) updateChannelState(ctx context.Context, ticket *domain.Ticket) {
	topic := fmt.Sprintf("Ticket #%d | Opener: %s", ticket.Number, ticket.Opener.ID)
	if ticket.ClaimedBy != nil {
		topic += fmt.Sprintf(" | Claimed By: %s", ticket.ClaimedBy.ID)
	}
	if err := s.gw.EditChannel(ctx, ticket.ChannelID, gateway.ChannelEdit{Topic: topic}); err != nil {
		s.logger.Warn("failed to update ticket topic",
			zap.String("channel_id", ticket.ChannelID), zap.Error(err))
	}

	if ticket.ControlMessageID == "" {
		return
	}
	err := s.gw.EditMessage(ctx, ticket.ChannelID, ticket.ControlMessageID, gateway.Outbound{
		Embeds:     []gateway.Embed{s.controlEmbed(ticket)},
		Components: s.controlRows(ticket.ClaimedBy != nil),
	})
	if err != nil {
		s.logger.Warn("failed to update ticket control message",
			zap.String("channel_id", ticket.ChannelID), zap.Error(err))
	}
}

// postNotice sends an in-channel notice, optionally re-posting the
// action rows so the latest message always carries usable controls.
func (s *TicketService) postNotice(ctx context.Context, ticket *domain.Ticket, content string, withControls bool) {
	msg := gateway.Outbound{Content: content}
	if withControls {
		msg.Components = s.controlRows(ticket.ClaimedBy != nil)
	}
	if _, err := s.gw.SendMessage(ctx, ticket.ChannelID, msg); err != nil {
		s.logger.Warn("failed to post ticket notice",
			zap.String("channel_id", ticket.ChannelID), zap.Error(err))
	}
}

func (s *TicketService) controlEmbed(ticket *domain.Ticket) gateway.Embed {
	status := "🟢 Open"
	color := 0x00ff00
	claimedBy := "Unclaimed"
	if ticket.ClaimedBy != nil {
		status = "🟡 Claimed"
		color = 0xffff00
		claimedBy = ticket.ClaimedBy.Tag
	}
	return gateway.Embed{
		Title:       fmt.Sprintf("Ticket #%d", ticket.Number),
		Description: fmt.Sprintf("**Reason:** %s\n\nA staff member will be with you shortly.", ticket.Reason),
		Color:       color,
		Timestamp:   s.now(),
		Fields: []gateway.EmbedField{
			{Name: "Status", Value: status, Inline: true},
			{Name: "Opener", Value: ticket.Opener.Tag, Inline: true},
			{Name: "Claimed By", Value: claimedBy, Inline: true},
		},
	}
}

func (s *TicketService) controlRows(claimed bool) []gateway.ActionRow {
	claimButton := gateway.Button{CustomID: ControlClaim, Label: "Claim Ticket", Style: gateway.ButtonPrimary}
	if claimed {
		claimButton = gateway.Button{CustomID: ControlUnclaim, Label: "Unclaim Ticket", Style: gateway.ButtonSecondary}
	}
	return []gateway.ActionRow{
		{Buttons: []gateway.Button{claimButton}},
		{Select: &gateway.SelectMenu{
			CustomID:    ControlCloseSelect,
			Placeholder: "Close ticket...",
			MinValues:   1,
			MaxValues:   1,
			Options: []gateway.SelectOption{
				{Label: "Resolved", Value: string(domain.CloseDispositionResolved),
					Description: "Ticket was successfully resolved", Emoji: "✅"},
				{Label: "Declined", Value: string(domain.CloseDispositionDeclined),
					Description: "Ticket was declined/not resolved", Emoji: "❌"},
			},
		}},
		{Buttons: []gateway.Button{
			{CustomID: ControlRename, Label: "Rename", Style: gateway.ButtonSecondary},
			{CustomID: ControlAddMember, Label: "Add Member", Style: gateway.ButtonSecondary},
			{CustomID: ControlRemoveMember, Label: "Remove Member", Style: gateway.ButtonSecondary},
		}},
	}
}

// buildTranscript formats the recent channel history, oldest first, and
// truncates it to the audit notification field limit.
func (s *TicketService) buildTranscript(ctx context.Context, channelID string) (string, bool) {
	msgs, err := s.gw.RecentMessages(ctx, channelID, 100)
	if err != nil {
		s.logger.Warn("failed to fetch ticket history",
			zap.String("channel_id", channelID), zap.Error(err))
		return "", false
	}

	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		content := m.Content
		if content == "" {
			content = "[No content]"
		}
		line := fmt.Sprintf("[%s] %s: %s", m.Timestamp.UTC().Format(time.RFC3339), m.AuthorTag, content)
		if m.AttachmentCount > 0 {
			line += fmt.Sprintf(" [%d attachment(s)]", m.AttachmentCount)
		}
		lines = append(lines, line)
	}
	transcript := strings.Join(lines, "\n")

	limit := s.cfg.TranscriptLimit
	if limit > 3 {
		if runes := []rune(transcript); len(runes) > limit {
			transcript = string(runes[:limit-3]) + "..."
		}
	}
	return transcript, true
}

func (s *TicketService) archive(ctx context.Context, ticket *domain.Ticket) bool {
	if s.cfg.ArchiveCategoryID == "" {
		return false
	}
	closedBy := "Unknown"
	if ticket.ClosedBy != nil {
		closedBy = ticket.ClosedBy.Tag
	}
	err := s.gw.EditChannel(ctx, ticket.ChannelID, gateway.ChannelEdit{
		Name:     "archived-" + ticket.ChannelName,
		ParentID: s.cfg.ArchiveCategoryID,
		Topic:    fmt.Sprintf("ARCHIVED | Closed by: %s | Reason: %s", closedBy, ticket.CloseReason),
		Overwrites: []gateway.PermissionOverwrite{
			{ID: ticket.GuildID, Type: gateway.OverwriteRole, Deny: gateway.PermSendMessages},
			{ID: ticket.Opener.ID, Type: gateway.OverwriteMember,
				Allow: gateway.PermViewChannel | gateway.PermReadHistory},
		},
	})
	if err != nil {
		s.logger.Warn("failed to archive ticket channel",
			zap.String("channel_id", ticket.ChannelID), zap.Error(err))
		return false
	}
	return true
}

// scheduleDelete removes the channel after a short delay so the closing
// acknowledgment still renders.
func (s *TicketService) scheduleDelete(channelID, reason string) {
	delay := s.cfg.DeleteDelay()
	time.AfterFunc(delay, func() {
		if err := s.gw.DeleteChannel(context.Background(), channelID); err != nil {
			s.logger.Warn("failed to delete ticket channel",
				zap.String("channel_id", channelID),
				zap.String("reason", reason),
				zap.Error(err))
		}
	})
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, actor domain.UserRef, payload interface{}) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
