// Package audit formats and delivers notification records to the fixed
// audit destination. Delivery is fire-and-forget: it never blocks or
// fails the operation that triggered it.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/gateway"
)

// Notification colors.
const (
	ColorNeutral = 0x2b2d31
	ColorGreen   = 0x00ff00
	ColorYellow  = 0xffff00
	ColorRed     = 0xff0000
	ColorOrange  = 0xff8800
	ColorReplay  = 0xff6b6b
)

// Record is one structured audit notification.
type Record struct {
	Title  string
	Body   string
	Color  int
	Fields []gateway.EmbedField
	Files  []gateway.File
}

// Emitter delivers records to the audit channel.
type Emitter struct {
	client    gateway.Client
	channelID string
	logger    *zap.Logger
}

// NewEmitter creates an emitter bound to the audit destination channel.
func NewEmitter(client gateway.Client, channelID string, logger *zap.Logger) *Emitter {
	return &Emitter{client: client, channelID: channelID, logger: logger}
}

// Emit sends one record, best-effort. Missing-access failures are
// swallowed silently (expected when the agent cannot see the audit
// channel); any other failure is logged and dropped.
func (e *Emitter) Emit(ctx context.Context, rec Record) {
	if e == nil || e.channelID == "" {
		return
	}
	msg := gateway.Outbound{
		Embeds: []gateway.Embed{{
			Title:       rec.Title,
			Description: rec.Body,
			Color:       rec.Color,
			Timestamp:   time.Now(),
			Fields:      rec.Fields,
		}},
		Files: rec.Files,
	}
	if _, err := e.client.SendMessage(ctx, e.channelID, msg); err != nil {
		if gateway.IsMissingAccess(err) {
			return
		}
		e.logger.Warn("failed to send audit record",
			zap.String("title", rec.Title),
			zap.Error(err))
	}
}
