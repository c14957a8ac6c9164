package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/wiredium/ripple/internal/runtime"
	"github.com/wiredium/ripple/internal/topic"
)

// EventsController handles event publishing and replay-window listing.
type EventsController struct {
	rt *runtime.Runtime
}

// NewEventsController creates a new events controller.
func NewEventsController(rt *runtime.Runtime) *EventsController {
	return &EventsController{rt: rt}
}

// RegisterRoutes registers event routes with the given router.
func (c *EventsController) RegisterRoutes(r chi.Router) {
	r.Post("/v1/events/publish", c.handlePublish)
	r.Get("/v1/topics/events", c.handleListEvents)
}

// handlePublish appends one event to a topic. The topic is created on first
// publish; there is no topic-not-found failure mode.
func (c *EventsController) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tp, err := topic.Parse(req.Topic)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid topic")
		return
	}
	if req.Kind == "" {
		writeError(w, http.StatusBadRequest, "Missing event kind")
		return
	}
	seq, err := c.rt.Bus().Publish(r.Context(), tp, req.Kind, req.Payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to publish")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(publishResp{Topic: tp.String(), Seq: seq})
}

// handleListEvents lists retained events for a topic after a sequence.
//
// Query params: topic (required), after (sequence, default 0), limit.
func (c *EventsController) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tp, err := topic.Parse(q.Get("topic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid topic")
		return
	}
	after, ok := parseSeq(q.Get("after"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid after sequence")
		return
	}
	events, gap, found := c.rt.Bus().ReadTopic(tp, after, parseLimit(q.Get("limit")))
	if !found {
		writeError(w, http.StatusNotFound, "Unknown topic")
		return
	}
	writeJSON(w, map[string]any{
		"topic":  tp.String(),
		"events": events,
		"gap":    gap,
	})
}
