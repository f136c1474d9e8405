package delivery

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// GET /api/tasks/:id/subtasks
func (h *TaskHandler) GetSubtasks(c *gin.Context) {
	subtasks, err := h.taskUsecase.ListSubtasks(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtasks": subtasks})
}

// POST /api/tasks/:id/subtasks
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	var req usecase.CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	subtask, err := h.taskUsecase.CreateSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, subtask)
}

// PATCH /api/subtasks/:id
func (h *TaskHandler) UpdateSubtask(c *gin.Context) {
	var req usecase.SubtaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	subtask, err := h.taskUsecase.UpdateSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, subtask)
}

// POST /api/subtasks/:id/toggle
func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	subtask, err := h.taskUsecase.ToggleSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, subtask)
}

// DELETE /api/subtasks/:id
func (h *TaskHandler) DeleteSubtask(c *gin.Context) {
	if err := h.taskUsecase.DeleteSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/tasks/:id/attachments
func (h *TaskHandler) GetAttachments(c *gin.Context) {
	attachments, err := h.taskUsecase.ListAttachments(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": attachments})
}

// UploadAttachment accepts a multipart form with a single "file" field
// POST /api/tasks/:id/attachments
func (h *TaskHandler) UploadAttachment(c *gin.Context) {
	file, closeFile, err := ReadUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeFile()

	attachment, err := h.taskUsecase.UploadAttachment(c.Request.Context(), c.GetString("userID"), c.Param("id"), file)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

// DELETE /api/attachments/:id
func (h *TaskHandler) DeleteAttachment(c *gin.Context) {
	if err := h.taskUsecase.DeleteAttachment(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReadUpload opens the multipart file in field. The returned func closes it.
func ReadUpload(c *gin.Context, field string) (usecase.UploadFile, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return usecase.UploadFile{}, func() {}, errors.New("No file provided")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (usecase.UploadFile, func(), error) {
	f, err := header.Open()
	if err != nil {
		return usecase.UploadFile{}, func() {}, fmt.Errorf("failed to read upload: %w", err)
	}
	return usecase.UploadFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
