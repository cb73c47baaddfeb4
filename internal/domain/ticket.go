package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusClaimed TicketStatus = "CLAIMED"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// CloseDisposition enumerates the ways a ticket can be closed.
type CloseDisposition string

const (
	CloseDispositionResolved CloseDisposition = "resolved"
	CloseDispositionDeclined CloseDisposition = "declined"
)

// UserRef identifies a platform user by opaque id plus display tag.
type UserRef struct {
	ID  string
	Tag string
}

// Ticket is the aggregate for one support request. At most one
// non-closed ticket exists per opener at any time.
type Ticket struct {
	Number           int
	GuildID          string
	Opener           UserRef
	ChannelID        string
	ChannelName      string
	ControlMessageID string
	Status           TicketStatus
	ClaimedBy        *UserRef
	Members          []string
	Reason           string
	CreatedAt        time.Time
	ClosedAt         *time.Time
	ClosedBy         *UserRef
	CloseReason      string
}

// Active reports whether the ticket is in a non-terminal state.
func (t *Ticket) Active() bool {
	return t != nil && t.Status != TicketStatusClosed
}

// HasMember reports whether the given user id was granted extra access.
func (t *Ticket) HasMember(userID string) bool {
	for _, id := range t.Members {
		if id == userID {
			return true
		}
	}
	return false
}
