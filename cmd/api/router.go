package api

import (
	"net/http"

	authDelivery "cyra-kanban/internal/auth/delivery"
	automationDelivery "cyra-kanban/internal/automation/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	cfg := h.deps.Config
	session := authDelivery.AuthMiddleware(h.deps.AuthUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE change feed
		api.GET("/events", session, func(c *gin.Context) {
			h.deps.SSEManager.ServeHTTP(c, c.GetString("userID"))
		})

		// Public: login/register and the Google OAuth redirect target
		h.authHandler.RegisterPublicRoutes(api)
		h.calendarHandler.RegisterPublicRoutes(api)

		// Automation actor, authenticated by static bearer keys
		tasksKey := cfg.CyraTasksAPIKey
		if tasksKey == "" {
			tasksKey = cfg.CyraAPIKey
		}
		h.automationHandler.RegisterRoutes(api, automationDelivery.Guards{
			Actions:  automationDelivery.BearerKeyMiddleware(cfg.CyraAPIKey, h.deps.Owners),
			Tasks:    automationDelivery.BearerKeyMiddleware(tasksKey, h.deps.Owners),
			Children: automationDelivery.KeyOrSession(tasksKey, h.deps.Owners, h.deps.AuthUsecase),
		})

		// Session routes
		protected := api.Group("", session)
		{
			h.authHandler.RegisterRoutes(protected)
			h.taskHandler.RegisterRoutes(protected)
			h.calendarHandler.RegisterRoutes(protected)
			h.activityHandler.RegisterRoutes(protected)
			h.clientHandler.RegisterRoutes(protected)

			settings := protected.Group("/settings")
			{
				settings.GET("", h.settingsHandler.GetSettings)
				settings.PATCH("", h.settingsHandler.UpdateSettings)
				settings.DELETE("", h.settingsHandler.Disconnect)
			}
		}
	}
}
