package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wiredium/ripple/internal/runtime"
)

// GeneralController handles health and inspection endpoints.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given router.
//
// This method sets up HTTP endpoints for:
// - Health checks (/v1/healthz)
// - Topic inspection (/v1/topics)
// - Stream statistics (/v1/stream/stats)
func (c *GeneralController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/healthz", c.handleHealth)
	r.Get("/v1/topics", c.handleListTopics)
	r.Get("/v1/stream/stats", c.handleStreamStats)
}

// handleHealth returns the health status of the service.
//
// Returns 200 OK with {"status": "ok"} if healthy, 503 Service Unavailable
// otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleListTopics lists active topics with log and subscriber stats.
func (c *GeneralController) handleListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"topics": c.rt.Bus().TopicStatsAll()})
}

// handleStreamStats returns registry-wide counters.
func (c *GeneralController) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.rt.Bus().StatsNow())
}
