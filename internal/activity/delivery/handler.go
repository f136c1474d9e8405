package delivery

import (
	"net/http"
	"strconv"
	"time"

	"cyra-kanban/internal/activity/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityUsecase usecase.ActivityUsecase
}

func NewActivityHandler(activityUsecase usecase.ActivityUsecase) *ActivityHandler {
	return &ActivityHandler{activityUsecase: activityUsecase}
}

func (h *ActivityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notes", h.GetNotes)
	rg.POST("/notes", h.CreateNote)
	rg.PATCH("/notes/:id/read", h.MarkNoteRead)

	rg.GET("/logs", h.GetLogs)
	rg.POST("/logs", h.CreateLog)

	rg.GET("/status", h.GetStatus)
	rg.PUT("/status", h.UpdateStatus)
	rg.POST("/status", h.UpdateStatus)
}

// GET /api/notes
func (h *ActivityHandler) GetNotes(c *gin.Context) {
	notes, err := h.activityUsecase.ListNotes(c.Request.Context(), c.GetString("userID"), c.Query("unread") == "true")
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// POST /api/notes
func (h *ActivityHandler) CreateNote(c *gin.Context) {
	var req usecase.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.activityUsecase.AddNote(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// PATCH /api/notes/:id/read
func (h *ActivityHandler) MarkNoteRead(c *gin.Context) {
	req := struct {
		Read *bool `json:"read"`
	}{}
	// An empty body marks the note read.
	_ = c.ShouldBindJSON(&req)
	read := req.Read == nil || *req.Read

	note, err := h.activityUsecase.SetNoteRead(c.Request.Context(), c.GetString("userID"), c.Param("id"), read)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// GET /api/logs
func (h *ActivityHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a unix timestamp in milliseconds"})
			return
		}
		if ms > 0 {
			since = time.UnixMilli(ms)
		}
	}

	logs, err := h.activityUsecase.RecentLogs(c.Request.Context(), c.GetString("userID"), since, limit)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// POST /api/logs
func (h *ActivityHandler) CreateLog(c *gin.Context) {
	var req usecase.LogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.activityUsecase.AddLog(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GET /api/status
func (h *ActivityHandler) GetStatus(c *gin.Context) {
	status, err := h.activityUsecase.GetStatus(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// PUT /api/status
func (h *ActivityHandler) UpdateStatus(c *gin.Context) {
	var req usecase.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.activityUsecase.UpdateStatus(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
