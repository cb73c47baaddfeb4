package events

import (
	"time"

	"github.com/spec-kit/community-agent/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketUnclaimed     EventType = "ticket_unclaimed"
	EventTicketRenamed       EventType = "ticket_renamed"
	EventTicketMemberAdded   EventType = "ticket_member_added"
	EventTicketMemberRemoved EventType = "ticket_member_removed"
	EventTicketClosed        EventType = "ticket_closed"
	EventMessageDeleted      EventType = "message_deleted"
	EventMediaReplayed       EventType = "media_replayed"
	EventMediaEvicted        EventType = "media_evicted"
	EventMemberJoined        EventType = "member_joined"
	EventMemberLeft          EventType = "member_left"
	EventMessagesPurged      EventType = "messages_purged"
)

// Event represents a domain event emitted by the ticket control surface
// and the media cache.
type Event struct {
	ID        string
	Type      EventType
	Actor     domain.UserRef
	Timestamp time.Time
	Payload   interface{}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number      int
	Opener      domain.UserRef
	ChannelID   string
	ChannelName string
	Reason      string
}

// TicketClaimPayload covers both claim and unclaim.
type TicketClaimPayload struct {
	Number    int
	ChannelID string
	Staff     domain.UserRef
}

// TicketRenamedPayload payload.
type TicketRenamedPayload struct {
	Number    int
	ChannelID string
	NewName   string
}

// TicketMemberPayload covers member grants and revocations.
type TicketMemberPayload struct {
	Number    int
	ChannelID string
	Member    domain.UserRef
}

// TicketClosedPayload captures the closure outcome, including whether
// downstream archive/transcript/role actions succeeded.
type TicketClosedPayload struct {
	Number       int
	Opener       domain.UserRef
	ClosedBy     domain.UserRef
	ChannelID    string
	ChannelName  string
	Disposition  domain.CloseDisposition
	Archived     bool
	Transcript   string
	TranscriptOK bool
	RoleGranted  bool
}

// MessageDeletedPayload payload. CachedFiles is zero when the deleted
// message had no cache entry.
type MessageDeletedPayload struct {
	MessageID   string
	AuthorTag   string
	AuthorID    string
	ChannelID   string
	CachedFiles int
}

// MediaReplayedPayload carries one cached file back for audit. Index
// and Total preserve the original attachment ordering.
type MediaReplayedPayload struct {
	MessageID   string
	AuthorTag   string
	ChannelID   string
	FilePath    string
	OriginalURL string
	Index       int
	Total       int
}

// MediaEvictedPayload payload.
type MediaEvictedPayload struct {
	MessageID string
	Files     int
	Reason    string
}

// MemberPayload covers joins and leaves.
type MemberPayload struct {
	Member        domain.UserRef
	MemberCount   int
	WelcomeRoleOK bool
}

// MessagesPurgedPayload payload.
type MessagesPurgedPayload struct {
	ChannelID string
	Count     int
}
