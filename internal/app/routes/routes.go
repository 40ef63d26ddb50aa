package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/controllers"
	"github.com/akyuz/termflow/internal/middleware"
	"github.com/akyuz/termflow/internal/pkg/websocket"
)

// Scopes understood by the scheduling API. Read covers introspection and
// result retrieval; runs covers triggering engine work.
const (
	ScopeRead = "progression:read"
	ScopeRuns = "progression:runs"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	runController *controllers.RunController,
	catalogController *controllers.CatalogController,
	scheduleController *controllers.ScheduleController,
	authMiddleware *middleware.AuthMiddleware,
	hub *websocket.Hub,
	logger zerolog.Logger,
) {
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/token", authController.Token)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		// Catalog introspection
		courses := authenticated.Group("/courses")
		courses.Use(authMiddleware.RequireScope(ScopeRead))
		{
			courses.GET("", catalogController.ListCourses)
			courses.GET("/:id/blocking", catalogController.GetBlocking)
		}
		authenticated.POST("/catalog/validate",
			authMiddleware.RequireScope(ScopeRead), catalogController.ValidateCatalog)

		// Standalone schedule validation
		authenticated.POST("/schedule/validate",
			authMiddleware.RequireScope(ScopeRead), scheduleController.Validate)

		// Term runs
		authenticated.POST("/terms/:term/runs",
			authMiddleware.RequireScope(ScopeRuns), runController.StartRun)

		runs := authenticated.Group("/runs")
		runs.Use(authMiddleware.RequireScope(ScopeRead))
		{
			// Static segment wins over :runId, so the event stream can
			// live beside the run routes
			runs.GET("/events", func(c *gin.Context) {
				if err := websocket.ServeWS(hub, c.Writer, c.Request, logger); err != nil {
					logger.Warn().Err(err).Msg("Websocket upgrade failed")
				}
			})

			runs.GET("/:runId", runController.GetRun)
			runs.GET("/:runId/eligibility", runController.GetEligibility)
			runs.GET("/:runId/priorities", runController.GetPriorities)
			runs.GET("/:runId/assignments", runController.GetAssignments)
			runs.GET("/:runId/unassigned", runController.GetUnassigned)
		}
	}
}
