package controllers

import (
	"github.com/go-chi/chi/v5"

	"github.com/wiredium/ripple/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes.
type ControllerRegistry struct {
	general *GeneralController
	events  *EventsController
	stream  *StreamController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		events:  NewEventsController(rt),
		stream:  NewStreamController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given router.
func (cr *ControllerRegistry) RegisterAllRoutes(r chi.Router) {
	cr.general.RegisterRoutes(r)
	cr.events.RegisterRoutes(r)
	cr.stream.RegisterRoutes(r)
}
