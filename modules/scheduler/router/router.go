package router

import (
	"group-scheduler/core/middleware"
	"group-scheduler/modules/scheduler/controller"

	"github.com/labstack/echo/v4"
)

// SchedulerRouter handles proposal routes
type SchedulerRouter struct {
	SchedulerController *controller.SchedulerController
}

func NewSchedulerRouter(schedulerController *controller.SchedulerController) *SchedulerRouter {
	return &SchedulerRouter{
		SchedulerController: schedulerController,
	}
}

// Setup registers proposal routes
func (r *SchedulerRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	proposalRoutes := privateRoutes.Group("/proposals", mw.AuthMiddleware())

	proposalRoutes.POST("", r.SchedulerController.CreateProposal)
	proposalRoutes.GET("", r.SchedulerController.ListMyProposals)
	proposalRoutes.GET("/:id", r.SchedulerController.GetProposal)
	proposalRoutes.GET("/:id/grid", r.SchedulerController.GetGrid)

	// Availability
	proposalRoutes.PUT("/:id/availability", r.SchedulerController.SubmitAvailability)

	// Suggestions
	proposalRoutes.GET("/:id/suggestions", r.SchedulerController.GetSuggestions)
	proposalRoutes.GET("/:id/suggestions/stored", r.SchedulerController.GetStoredSuggestions)
	proposalRoutes.GET("/:id/suggestions/stream", r.SchedulerController.StreamSuggestions)
	proposalRoutes.GET("/:id/calendar.ics", r.SchedulerController.ExportCalendar)
}
