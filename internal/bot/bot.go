// Package bot wires gateway events and interactions onto the ticket
// control surface and the media cache. It is plumbing: every handler
// translates platform payloads into service calls and sends exactly one
// acknowledgment back to the caller.
package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/config"
	"github.com/spec-kit/community-agent/internal/domain"
	"github.com/spec-kit/community-agent/internal/events"
	"github.com/spec-kit/community-agent/internal/gateway"
	"github.com/spec-kit/community-agent/internal/mediacache"
	"github.com/spec-kit/community-agent/internal/service"
)

// Bot binds the discordgo session to the agent's services.
type Bot struct {
	session *discordgo.Session
	gw      gateway.Client
	tickets *service.TicketService
	cache   *mediacache.Cache
	bus     events.Dispatcher
	cfg     *config.Config
	logger  *zap.Logger
}

// Dependencies bundles collaborators for the bot.
type Dependencies struct {
	Session    *discordgo.Session
	Gateway    gateway.Client
	Tickets    *service.TicketService
	Cache      *mediacache.Cache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// New constructs the bot and registers its gateway handlers.
func New(cfg *config.Config, deps Dependencies) *Bot {
	b := &Bot{
		session: deps.Session,
		gw:      deps.Gateway,
		tickets: deps.Tickets,
		cache:   deps.Cache,
		bus:     deps.Dispatcher,
		cfg:     cfg,
		logger:  deps.Logger,
	}
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)
	return b
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("logged in", zap.String("user", r.User.String()))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if len(m.Attachments) == 0 {
		return
	}

	msg := mediacache.InboundMessage{
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		AuthorTag: m.Author.String(),
		ChannelID: m.ChannelID,
	}
	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, mediacache.Attachment{
			URL:         att.URL,
			ContentType: att.ContentType,
			Name:        att.Filename,
		})
	}
	b.cache.HandleMessage(context.Background(), msg)
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	authorID, authorTag := "", ""
	if m.BeforeDelete != nil && m.BeforeDelete.Author != nil {
		if m.BeforeDelete.Author.Bot {
			return
		}
		authorID = m.BeforeDelete.Author.ID
		authorTag = m.BeforeDelete.Author.String()
	}
	b.cache.HandleDeletion(context.Background(), m.ID, authorID, authorTag, m.ChannelID)
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil {
		return
	}
	welcomeOK := false
	if b.cfg.Ticket.WelcomeRoleID != "" {
		err := b.gw.AddMemberRole(context.Background(), m.GuildID, m.User.ID, b.cfg.Ticket.WelcomeRoleID)
		if err != nil {
			b.logger.Warn("failed to assign welcome role",
				zap.String("user_id", m.User.ID), zap.Error(err))
		} else {
			welcomeOK = true
		}
	}
	b.publish(events.EventMemberJoined, events.MemberPayload{
		Member:        domain.UserRef{ID: m.User.ID, Tag: m.User.String()},
		MemberCount:   b.memberCount(m.GuildID),
		WelcomeRoleOK: welcomeOK,
	})
}

func (b *Bot) onGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User == nil {
		return
	}
	b.publish(events.EventMemberLeft, events.MemberPayload{
		Member:      domain.UserRef{ID: m.User.ID, Tag: m.User.String()},
		MemberCount: b.memberCount(m.GuildID),
	})
}

func (b *Bot) memberCount(guildID string) int {
	g, err := b.session.State.Guild(guildID)
	if err != nil {
		return 0
	}
	return g.MemberCount
}

func (b *Bot) publish(eventType events.EventType, payload interface{}) {
	if b.bus == nil {
		return
	}
	_ = b.bus.Publish(context.Background(), events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
