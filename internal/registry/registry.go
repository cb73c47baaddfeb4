// Package registry owns the in-memory ticket state: one active ticket
// per opener, a channel-id index for interaction lookup, per-guild
// ticket numbering, and the per-opener creation clock that backs the
// open cooldown. State is intentionally transient; nothing survives a
// restart.
package registry

import (
	"sync"
	"time"

	"github.com/spec-kit/community-agent/internal/domain"
)

// Registry is the single owner of active Ticket records.
type Registry struct {
	mu          sync.Mutex
	byOpener    map[string]*domain.Ticket
	byChannel   map[string]string
	counters    map[string]int
	lastCreated map[string]time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byOpener:    make(map[string]*domain.Ticket),
		byChannel:   make(map[string]string),
		counters:    make(map[string]int),
		lastCreated: make(map[string]time.Time),
	}
}

// NextNumber allocates the next ticket number for a guild. Numbers are
// strictly increasing and never reused within a session.
func (r *Registry) NextNumber(guildID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[guildID]++
	return r.counters[guildID]
}

// Active returns the opener's non-terminal ticket, or nil.
func (r *Registry) Active(openerID string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.byOpener[openerID]
	if t.Active() {
		return t
	}
	return nil
}

// ByChannel resolves an interaction's channel to its ticket via the
// secondary index, or nil when the channel is not a ticket channel.
func (r *Registry) ByChannel(channelID string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	openerID, ok := r.byChannel[channelID]
	if !ok {
		return nil
	}
	return r.byOpener[openerID]
}

// Put stores a ticket under its opener and indexes its channel. Both
// maps mutate under the same lock so the index never drifts from the
// primary store.
func (r *Registry) Put(t *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOpener[t.Opener.ID] = t
	r.byChannel[t.ChannelID] = t.Opener.ID
	r.lastCreated[t.Opener.ID] = t.CreatedAt
}

// Remove drops the ticket identified by opener and channel. The channel
// index entry always goes; the opener slot is freed only while it still
// holds that same channel's ticket, so a ticket the opener created
// concurrently with the close is not lost. The creation clock survives
// so the cooldown also covers closed tickets.
func (r *Registry) Remove(openerID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byChannel, channelID)
	if t, ok := r.byOpener[openerID]; ok && t.ChannelID == channelID {
		delete(r.byOpener, openerID)
	}
}

// CooldownRemaining returns how much of the window is left since the
// opener's most recent ticket creation, or zero when expired or absent.
func (r *Registry) CooldownRemaining(openerID string, window time.Duration, now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	created, ok := r.lastCreated[openerID]
	if !ok {
		return 0
	}
	remaining := window - now.Sub(created)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Len reports the number of active tickets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byOpener)
}
