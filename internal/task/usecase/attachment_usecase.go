package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"cyra-kanban/internal/notification"
	"cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/errutil"

	"go.uber.org/zap"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// objectKey lays attachments out as {owner}/{task}/{unix millis}_{name}.
func (u *taskUsecase) objectKey(ownerID, taskID, name string) string {
	return fmt.Sprintf("%s/%s/%d_%s", ownerID, taskID, u.now().UnixMilli(), unsafeFileChars.ReplaceAllString(name, "_"))
}

func (u *taskUsecase) ListAttachments(ctx context.Context, ownerID, taskID string) ([]*domain.Attachment, error) {
	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	attachments, err := u.attachmentRepo.ListByTask(ctx, ownerID, task.ID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to list attachments", errutil.WithErr(err))
	}
	for _, a := range attachments {
		u.signAttachment(ctx, a)
	}
	return attachments, nil
}

// UploadAttachment stores the body first and the row second. When the row cannot be
// written the stored object is removed once.
func (u *taskUsecase) UploadAttachment(ctx context.Context, ownerID, taskID string, file UploadFile) (*domain.Attachment, error) {
	if u.store == nil {
		return nil, errutil.NewInternal("Attachment storage is not configured")
	}
	if file.Size > u.maxUpload {
		return nil, errutil.NewBadRequest(fmt.Sprintf("File too large (max %dMB)", u.maxUpload>>20), errutil.WithErr(domain.ErrFileTooLarge))
	}
	if file.Size <= 0 || file.Body == nil {
		return nil, errutil.NewBadRequest("No file provided")
	}

	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := u.objectKey(ownerID, task.ID, file.Name)

	if err := u.store.Put(ctx, key, file.Body, file.Size, contentType); err != nil {
		return nil, errutil.NewInternal("Failed to upload file", errutil.WithErr(err))
	}

	attachment := &domain.Attachment{
		TaskID:   task.ID,
		UserID:   ownerID,
		FileName: file.Name,
		FilePath: key,
		FileSize: file.Size,
		MimeType: contentType,
	}
	if err := u.attachmentRepo.Create(ctx, attachment); err != nil {
		if rmErr := u.store.Remove(ctx, key); rmErr != nil {
			zap.L().Error("[TaskUsecase] Failed to remove orphaned attachment object", zap.String("path", key), zap.Error(rmErr))
		}
		return nil, errutil.NewInternal("Failed to save attachment", errutil.WithErr(err))
	}

	u.signAttachment(ctx, attachment)
	u.publish(ctx, ownerID, notification.KindAttachmentChanged, task.ID, attachment.FileName)
	return attachment, nil
}

// DeleteAttachment removes the row even when the stored object cannot be removed.
func (u *taskUsecase) DeleteAttachment(ctx context.Context, ownerID, attachmentID string) error {
	attachment, err := u.attachmentRepo.FindByID(ctx, ownerID, attachmentID)
	if err != nil {
		return errutil.NewInternal("Failed to load attachment", errutil.WithErr(err))
	}
	if attachment == nil {
		return attachmentNotFound()
	}

	if u.store != nil {
		if err := u.store.Remove(ctx, attachment.FilePath); err != nil {
			zap.L().Warn("[TaskUsecase] Storage delete failed", zap.String("path", attachment.FilePath), zap.Error(err))
		}
	}

	if err := u.attachmentRepo.Delete(ctx, ownerID, attachment.ID); err != nil {
		if errors.Is(err, domain.ErrAttachmentNotFound) {
			return attachmentNotFound()
		}
		return errutil.NewInternal("Failed to delete attachment", errutil.WithErr(err))
	}

	u.publish(ctx, ownerID, notification.KindAttachmentChanged, attachment.TaskID, attachment.FileName)
	return nil
}

func (u *taskUsecase) signAttachment(ctx context.Context, a *domain.Attachment) {
	if u.store == nil {
		return
	}
	url, err := u.store.SignedURL(ctx, a.FilePath, u.urlTTL)
	if err != nil {
		zap.L().Warn("[TaskUsecase] Failed to sign attachment URL", zap.String("path", a.FilePath), zap.Error(err))
		return
	}
	a.URL = &url
}

func attachmentNotFound() error {
	return errutil.NewNotFound("Attachment not found", errutil.WithErr(domain.ErrAttachmentNotFound))
}
