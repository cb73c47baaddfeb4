package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/events"
	"github.com/spec-kit/community-agent/internal/gateway"
	"github.com/spec-kit/community-agent/internal/observability"
)

// Notifier turns domain events into audit records.
type Notifier struct {
	emitter *Emitter
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNotifier creates the notifier.
func NewNotifier(emitter *Emitter, metrics *observability.Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{emitter: emitter, metrics: metrics, logger: logger}
}

// RegisterHandlers subscribes to all domain events.
func (n *Notifier) RegisterHandlers(bus events.Dispatcher) {
	if bus == nil {
		return
	}
	bus.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	bus.Subscribe(events.EventTicketClaimed, n.handleTicketClaimed)
	bus.Subscribe(events.EventTicketUnclaimed, n.handleTicketUnclaimed)
	bus.Subscribe(events.EventTicketRenamed, n.handleTicketRenamed)
	bus.Subscribe(events.EventTicketMemberAdded, n.handleMemberAdded)
	bus.Subscribe(events.EventTicketMemberRemoved, n.handleMemberRemoved)
	bus.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	bus.Subscribe(events.EventMessageDeleted, n.handleMessageDeleted)
	bus.Subscribe(events.EventMediaReplayed, n.handleMediaReplayed)
	bus.Subscribe(events.EventMediaEvicted, n.handleMediaEvicted)
	bus.Subscribe(events.EventMemberJoined, n.handleMemberJoined)
	bus.Subscribe(events.EventMemberLeft, n.handleMemberLeft)
	bus.Subscribe(events.EventMessagesPurged, n.handleMessagesPurged)
}

func (n *Notifier) record(event events.Event) {
	n.metrics.RecordEvent(string(event.Type))
}

func (n *Notifier) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "🎫 Ticket Created",
		Body:  fmt.Sprintf("New ticket #%d created by %s", p.Number, p.Opener.Tag),
		Color: ColorGreen,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "User", Value: fmt.Sprintf("%s (%s)", p.Opener.Tag, p.Opener.ID), Inline: true},
			{Name: "Channel", Value: fmt.Sprintf("%s (%s)", p.ChannelName, p.ChannelID), Inline: true},
			{Name: "Reason", Value: p.Reason, Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleTicketClaimed(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketClaimPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "🎯 Ticket Claimed",
		Body:  fmt.Sprintf("Ticket #%d claimed by %s", p.Number, p.Staff.Tag),
		Color: ColorYellow,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "Staff", Value: fmt.Sprintf("%s (%s)", p.Staff.Tag, p.Staff.ID), Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleTicketUnclaimed(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketClaimPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "🔓 Ticket Unclaimed",
		Body:  fmt.Sprintf("Ticket #%d unclaimed by %s", p.Number, p.Staff.Tag),
		Color: ColorGreen,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "Staff", Value: fmt.Sprintf("%s (%s)", p.Staff.Tag, p.Staff.ID), Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleTicketRenamed(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketRenamedPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "📝 Ticket Renamed",
		Body:  fmt.Sprintf("Ticket #%d renamed to %s", p.Number, p.NewName),
		Color: ColorNeutral,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "New Name", Value: p.NewName, Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleMemberAdded(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketMemberPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "👥 Ticket Member Added",
		Body:  fmt.Sprintf("%s was added to ticket #%d", p.Member.Tag, p.Number),
		Color: ColorGreen,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "Member", Value: fmt.Sprintf("%s (%s)", p.Member.Tag, p.Member.ID), Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleMemberRemoved(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketMemberPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "👥 Ticket Member Removed",
		Body:  fmt.Sprintf("%s was removed from ticket #%d", p.Member.Tag, p.Number),
		Color: ColorOrange,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "Member", Value: fmt.Sprintf("%s (%s)", p.Member.Tag, p.Member.ID), Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return nil
	}

	if p.TranscriptOK {
		n.emitter.Emit(ctx, Record{
			Title: "📜 Ticket Transcript",
			Body:  fmt.Sprintf("Transcript for ticket #%d", p.Number),
			Color: ColorNeutral,
			Fields: []gateway.EmbedField{
				{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
				{Name: "Opener", Value: p.Opener.Tag, Inline: true},
				{Name: "Transcript", Value: p.Transcript},
			},
		})
	}

	title := "✅ Ticket Resolved"
	color := ColorGreen
	role := "✅ Resolved role added"
	if p.Disposition != "resolved" {
		title = "❌ Ticket Declined"
		color = ColorOrange
		role = "No role added"
	} else if !p.RoleGranted {
		role = "Role assignment failed"
	}
	outcome := "Deleted"
	if p.Archived {
		outcome = "Archived"
	}
	transcript := "Created"
	if !p.TranscriptOK {
		transcript = "Failed"
	}
	n.emitter.Emit(ctx, Record{
		Title: title,
		Body:  fmt.Sprintf("Ticket #%d was %s", p.Number, p.Disposition),
		Color: color,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("#%d", p.Number), Inline: true},
			{Name: "Closed By", Value: fmt.Sprintf("%s (%s)", p.ClosedBy.Tag, p.ClosedBy.ID), Inline: true},
			{Name: "Opener", Value: fmt.Sprintf("%s (%s)", p.Opener.Tag, p.Opener.ID), Inline: true},
			{Name: "Channel", Value: fmt.Sprintf("%s (%s)", p.ChannelName, p.ChannelID), Inline: true},
			{Name: "Outcome", Value: outcome, Inline: true},
			{Name: "Transcript", Value: transcript, Inline: true},
			{Name: "Role Assignment", Value: role, Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleMessageDeleted(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.MessageDeletedPayload)
	if !ok {
		return nil
	}
	rec := Record{
		Title: "🗑️ Message Deleted",
		Body:  fmt.Sprintf("**Channel:** <#%s>\n**Author:** %s (%s)", p.ChannelID, orUnknown(p.AuthorTag), orUnknown(p.AuthorID)),
		Color: ColorRed,
	}
	if p.CachedFiles > 0 {
		rec.Fields = append(rec.Fields, gateway.EmbedField{
			Name:  "📸 Cached Media",
			Value: fmt.Sprintf("Found %d cached file(s)", p.CachedFiles),
		})
	}
	n.emitter.Emit(ctx, rec)
	return nil
}

func (n *Notifier) handleMediaReplayed(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.MediaReplayedPayload)
	if !ok {
		return nil
	}
	f, err := os.Open(p.FilePath)
	if err != nil {
		n.logger.Warn("cached media file unavailable for replay",
			zap.String("path", p.FilePath), zap.Error(err))
		return nil
	}
	defer f.Close()

	n.emitter.Emit(ctx, Record{
		Title: fmt.Sprintf("📸 Deleted Media %d/%d", p.Index, p.Total),
		Body: fmt.Sprintf("**Original Message:** %s\n**Author:** %s\n**Channel:** <#%s>",
			p.MessageID, orUnknown(p.AuthorTag), p.ChannelID),
		Color: ColorReplay,
		Fields: []gateway.EmbedField{
			{Name: "Original URL", Value: p.OriginalURL},
		},
		Files: []gateway.File{{
			Name:   fmt.Sprintf("deleted_media_%s_%d%s", p.MessageID, p.Index, filepath.Ext(p.FilePath)),
			Reader: f,
		}},
	})
	return nil
}

func (n *Notifier) handleMediaEvicted(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.MediaEvictedPayload)
	if !ok {
		return nil
	}
	n.logger.Debug("cached media evicted",
		zap.String("message_id", p.MessageID),
		zap.String("reason", p.Reason))
	return nil
}

func (n *Notifier) handleMemberJoined(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.MemberPayload)
	if !ok {
		return nil
	}
	welcome := "Assigned"
	if !p.WelcomeRoleOK {
		welcome = "Not assigned"
	}
	n.emitter.Emit(ctx, Record{
		Title: "👋 Member Joined",
		Body:  fmt.Sprintf("%s joined the server", p.Member.Tag),
		Color: ColorGreen,
		Fields: []gateway.EmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", p.Member.Tag, p.Member.ID), Inline: true},
			{Name: "Member Count", Value: fmt.Sprintf("%d", p.MemberCount), Inline: true},
			{Name: "Welcome Role", Value: welcome, Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleMemberLeft(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.MemberPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "👋 Member Left",
		Body:  fmt.Sprintf("%s left the server", p.Member.Tag),
		Color: ColorOrange,
		Fields: []gateway.EmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", p.Member.Tag, p.Member.ID), Inline: true},
			{Name: "Member Count", Value: fmt.Sprintf("%d", p.MemberCount), Inline: true},
		},
	})
	return nil
}

func (n *Notifier) handleMessagesPurged(ctx context.Context, event events.Event) error {
	n.record(event)
	p, ok := event.Payload.(events.MessagesPurgedPayload)
	if !ok {
		return nil
	}
	n.emitter.Emit(ctx, Record{
		Title: "🧹 Messages Purged",
		Body:  fmt.Sprintf("%d messages were bulk deleted", p.Count),
		Color: ColorOrange,
		Fields: []gateway.EmbedField{
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", p.ChannelID), Inline: true},
			{Name: "Count", Value: fmt.Sprintf("%d", p.Count), Inline: true},
		},
	})
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
