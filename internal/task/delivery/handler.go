package delivery

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"cyra-kanban/internal/task/domain"
	"cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/errutil"
	"cyra-kanban/pkg/timeutil"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
	}
}

// RegisterRoutes mounts the board routes on a group that already carries session auth.
func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	{
		tasks.GET("", h.GetTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/calendar", h.GetCalendarView)
		tasks.POST("/archive", h.ArchiveCompleted)
		tasks.GET("/:id", h.GetTaskByID)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)
		tasks.PATCH("/:id/move", h.MoveTask)
		tasks.POST("/:id/restore", h.RestoreTask)
		tasks.GET("/:id/subtasks", h.GetSubtasks)
		tasks.POST("/:id/subtasks", h.CreateSubtask)
		tasks.GET("/:id/attachments", h.GetAttachments)
		tasks.POST("/:id/attachments", h.UploadAttachment)
	}

	rg.PATCH("/subtasks/:id", h.UpdateSubtask)
	rg.POST("/subtasks/:id/toggle", h.ToggleSubtask)
	rg.DELETE("/subtasks/:id", h.DeleteSubtask)
	rg.DELETE("/attachments/:id", h.DeleteAttachment)
}

// GetTasks returns the board for the authenticated user
// GET /api/tasks?column=inbox&archived=false&q=invoice&limit=50&offset=0
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID := c.GetString("userID")

	filter := domain.TaskFilter{Query: c.Query("q")}
	if col := c.Query("column"); col != "" {
		column := domain.ParseColumn(col)
		if !column.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column: " + col})
			return
		}
		filter.Column = &column
	}
	switch c.Query("archived") {
	case "true", "only":
		filter.ArchivedOnly = true
	case "all":
		filter.IncludeArchived = true
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := h.taskUsecase.ListTasks(c.Request.Context(), userID, filter)
	if err != nil {
		errutil.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetTaskByID returns a specific task with its subtasks and attachments
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, err := h.taskUsecase.GetTask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask creates a new task
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req usecase.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.CreateTask(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask applies a partial update
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.UpdateTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskUsecase.DeleteTask(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type moveTaskRequest struct {
	ColumnID string `json:"column_id" binding:"required"`
}

// MoveTask appends a task to the end of another column
// PATCH /api/tasks/:id/move
func (h *TaskHandler) MoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.MoveTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.ColumnID)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// RestoreTask takes a task out of the archive
// POST /api/tasks/:id/restore
func (h *TaskHandler) RestoreTask(c *gin.Context) {
	task, err := h.taskUsecase.RestoreTask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ArchiveCompleted runs the archive sweep for the current user
// POST /api/tasks/archive
func (h *TaskHandler) ArchiveCompleted(c *gin.Context) {
	n, err := h.taskUsecase.ArchiveCompleted(c.Request.Context(), c.GetString("userID"), time.Now())
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": n})
}

// GetCalendarView returns scheduled tasks with recurring ones expanded
// GET /api/tasks/calendar?start=2025-03-01&end=2025-04-01
func (h *TaskHandler) GetCalendarView(c *gin.Context) {
	start, err := parseBound(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start"})
		return
	}
	end, err := parseBound(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end"})
		return
	}

	occurrences, err := h.taskUsecase.CalendarView(c.Request.Context(), c.GetString("userID"), start, end)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": occurrences})
}

func parseBound(raw string) (time.Time, error) {
	t, _, err := timeutil.ParseEventDate(strings.TrimSpace(raw), time.UTC)
	return t, err
}
