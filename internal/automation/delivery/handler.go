package delivery

import (
	"net/http"

	"cyra-kanban/internal/automation/usecase"
	taskdelivery "cyra-kanban/internal/task/delivery"
	taskusecase "cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type AutomationHandler struct {
	automationUsecase usecase.AutomationUsecase
	taskUsecase       taskusecase.TaskUsecase
}

func NewAutomationHandler(automationUsecase usecase.AutomationUsecase, taskUsecase taskusecase.TaskUsecase) *AutomationHandler {
	return &AutomationHandler{automationUsecase: automationUsecase, taskUsecase: taskUsecase}
}

// Guards selects the authentication of each automation route family.
type Guards struct {
	Actions  gin.HandlerFunc
	Tasks    gin.HandlerFunc
	Children gin.HandlerFunc
}

func (h *AutomationHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	rg.GET("/cyra", g.Actions, h.Health)
	rg.POST("/cyra", g.Actions, h.Execute)
	rg.POST("/cyra/tasks", g.Tasks, h.CreateTask)

	children := rg.Group("/cyra", g.Children)
	{
		children.GET("/subtasks", h.ListSubtasks)
		children.POST("/subtasks", h.CreateSubtask)
		children.PATCH("/subtasks/:id", h.UpdateSubtask)
		children.DELETE("/subtasks/:id", h.DeleteSubtask)
		children.GET("/attachments", h.ListAttachments)
		children.POST("/attachments", h.UploadAttachment)
		children.DELETE("/attachments/:id", h.DeleteAttachment)
	}
}

// GET /api/cyra
func (h *AutomationHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Cyra API is running",
		"actions": usecase.Actions,
	})
}

// POST /api/cyra
func (h *AutomationHandler) Execute(c *gin.Context) {
	var cmd usecase.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	result, err := h.automationUsecase.Execute(c.Request.Context(), c.GetString("userID"), cmd)
	if err != nil {
		errutil.Respond(c, err)
		return
	}

	body := gin.H{"success": true}
	for k, v := range result {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// POST /api/cyra/tasks
func (h *AutomationHandler) CreateTask(c *gin.Context) {
	var req usecase.FlatTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	task, err := h.automationUsecase.CreateTask(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": task.ID})
}

// GET /api/cyra/subtasks?taskId=
func (h *AutomationHandler) ListSubtasks(c *gin.Context) {
	taskID := c.Query("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId required"})
		return
	}
	subtasks, err := h.taskUsecase.ListSubtasks(c.Request.Context(), c.GetString("userID"), taskID)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtasks": subtasks})
}

type createSubtaskRequest struct {
	TaskID   string `json:"taskId"`
	Title    string `json:"title"`
	Position *int   `json:"position"`
}

// POST /api/cyra/subtasks
func (h *AutomationHandler) CreateSubtask(c *gin.Context) {
	var req createSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId and title required"})
		return
	}
	subtask, err := h.taskUsecase.CreateSubtask(c.Request.Context(), c.GetString("userID"), req.TaskID,
		taskusecase.CreateSubtaskRequest{Title: req.Title, Position: req.Position})
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtask": subtask})
}

// PATCH /api/cyra/subtasks/:id
func (h *AutomationHandler) UpdateSubtask(c *gin.Context) {
	var req taskusecase.SubtaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	subtask, err := h.taskUsecase.UpdateSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtask": subtask})
}

// DELETE /api/cyra/subtasks/:id
func (h *AutomationHandler) DeleteSubtask(c *gin.Context) {
	if err := h.taskUsecase.DeleteSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/cyra/attachments?taskId=
func (h *AutomationHandler) ListAttachments(c *gin.Context) {
	taskID := c.Query("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId required"})
		return
	}
	attachments, err := h.taskUsecase.ListAttachments(c.Request.Context(), c.GetString("userID"), taskID)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": attachments})
}

// POST /api/cyra/attachments (multipart: taskId, file)
func (h *AutomationHandler) UploadAttachment(c *gin.Context) {
	taskID := c.PostForm("taskId")
	file, closeFile, err := taskdelivery.ReadUpload(c, "file")
	if err != nil || taskID == "" {
		closeFile()
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId and file required"})
		return
	}
	defer closeFile()

	attachment, err := h.taskUsecase.UploadAttachment(c.Request.Context(), c.GetString("userID"), taskID, file)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachment": attachment})
}

// DELETE /api/cyra/attachments/:id
func (h *AutomationHandler) DeleteAttachment(c *gin.Context) {
	if err := h.taskUsecase.DeleteAttachment(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
