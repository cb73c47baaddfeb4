package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-agent/internal/mediacache"
	"github.com/spec-kit/community-agent/internal/observability"
	"github.com/spec-kit/community-agent/internal/registry"
)

// StatsHandler exposes live counters for operators.
type StatsHandler struct {
	metrics  *observability.Metrics
	registry *registry.Registry
	cache    *mediacache.Cache
}

// NewStatsHandler returns a new handler instance.
func NewStatsHandler(metrics *observability.Metrics, reg *registry.Registry, cache *mediacache.Cache) *StatsHandler {
	return &StatsHandler{metrics: metrics, registry: reg, cache: cache}
}

// Snapshot reports event counters and live state sizes.
func (h *StatsHandler) Snapshot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"events":         h.metrics.Snapshot(),
		"active_tickets": h.registry.Len(),
		"cached_media":   h.cache.Len(),
	})
}
