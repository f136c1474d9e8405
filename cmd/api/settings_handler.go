package api

import (
	"net/http"

	calendarUsecase "cyra-kanban/internal/calendar/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes the calendar integration settings of the session user.
type SettingsHandler struct {
	calendarUsecase calendarUsecase.CalendarUsecase
}

func NewSettingsHandler(calendarUsecase calendarUsecase.CalendarUsecase) *SettingsHandler {
	return &SettingsHandler{calendarUsecase: calendarUsecase}
}

// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.calendarUsecase.GetSettings(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "connected": settings.Connected()})
}

// PATCH /api/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req calendarUsecase.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.calendarUsecase.UpdateSettings(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "connected": settings.Connected()})
}

// DELETE /api/settings disconnects Google Calendar.
func (h *SettingsHandler) Disconnect(c *gin.Context) {
	if err := h.calendarUsecase.Disconnect(c.Request.Context(), c.GetString("userID")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
