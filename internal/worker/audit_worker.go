package worker

import (
	"github.com/spec-kit/community-agent/internal/audit"
	"github.com/spec-kit/community-agent/internal/events"
)

// StartAuditWorker registers the audit notifier on the event bus.
func StartAuditWorker(notifier *audit.Notifier, bus events.Dispatcher) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers(bus)
}
