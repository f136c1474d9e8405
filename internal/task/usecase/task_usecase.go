package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cyra-kanban/internal/notification"
	"cyra-kanban/internal/recurrence"
	"cyra-kanban/internal/task/domain"
	"cyra-kanban/internal/task/repository"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/errutil"
	"cyra-kanban/pkg/fuzzy"
	"cyra-kanban/pkg/position"
	"cyra-kanban/pkg/timeutil"

	"go.uber.org/zap"
)

const (
	defaultRetention   = 7 * 24 * time.Hour
	defaultMaxUpload   = 10 << 20
	defaultURLTTL      = time.Hour
	defaultTimezoneKey = "UTC"
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo       repository.TaskRepository
	subtaskRepo    repository.SubtaskRepository
	attachmentRepo repository.AttachmentRepository
	positions      position.Allocator
	calendar       CalendarSync
	store          ObjectStore
	publisher      Publisher

	defaultLoc *time.Location
	retention  time.Duration
	maxUpload  int64
	urlTTL     time.Duration
	now        func() time.Time
}

type Option func(*taskUsecase)

func WithCalendarSync(c CalendarSync) Option {
	return func(u *taskUsecase) { u.calendar = c }
}

func WithObjectStore(s ObjectStore) Option {
	return func(u *taskUsecase) { u.store = s }
}

func WithPublisher(p Publisher) Option {
	return func(u *taskUsecase) { u.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(u *taskUsecase) { u.now = now }
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(
	taskRepo repository.TaskRepository,
	subtaskRepo repository.SubtaskRepository,
	attachmentRepo repository.AttachmentRepository,
	positions position.Allocator,
	cfg *config.Config,
	opts ...Option,
) TaskUsecase {
	u := &taskUsecase{
		taskRepo:       taskRepo,
		subtaskRepo:    subtaskRepo,
		attachmentRepo: attachmentRepo,
		positions:      positions,
		publisher:      notification.NopPublisher{},
		defaultLoc:     timeutil.LoadLocation(cfg.DefaultTimezone, defaultTimezoneKey),
		retention:      cfg.ArchiveRetention,
		maxUpload:      cfg.AttachmentMaxBytes,
		urlTTL:         cfg.AttachmentURLTTL,
		now:            time.Now,
	}
	if u.retention <= 0 {
		u.retention = defaultRetention
	}
	if u.maxUpload <= 0 {
		u.maxUpload = defaultMaxUpload
	}
	if u.urlTTL <= 0 {
		u.urlTTL = defaultURLTTL
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *taskUsecase) CreateTask(ctx context.Context, ownerID string, req CreateTaskRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errutil.NewBadRequest("Title is required", errutil.WithErr(domain.ErrTitleRequired))
	}
	column := domain.ParseColumn(req.Column)
	if !column.Valid() {
		return nil, errutil.NewBadRequest("Invalid column: " + req.Column)
	}

	task := &domain.Task{
		UserID:                   ownerID,
		Title:                    title,
		Description:              req.Description,
		ColumnID:                 column,
		Priority:                 domain.ParsePriority(req.Priority),
		Project:                  strings.TrimSpace(req.Project),
		ClientID:                 emptyToNil(req.ClientID),
		ProductID:                emptyToNil(req.ProductID),
		GoogleCalendarSyncStatus: domain.SyncStatusUnsynced,
		CreatedBy:                domain.ActorFrom(ctx),
	}

	loc := u.location(ctx, ownerID)
	if err := applyEventDate(task, req.EventDate, loc); err != nil {
		return nil, err
	}
	task.RecurrenceRule = req.RecurrenceRule
	task.RecurrencePattern = domain.RecurrencePattern(strings.ToLower(strings.TrimSpace(req.RecurrencePattern)))
	task.RecurrenceCount = req.RecurrenceCount
	if err := applyRecurrenceEnd(task, req.RecurrenceEndDate, loc); err != nil {
		return nil, err
	}
	if err := normalizeRecurrence(task, loc); err != nil {
		return nil, err
	}

	pos, err := u.positions.Next(ctx, ownerID, string(column))
	if err != nil {
		return nil, errutil.NewInternal("Failed to allocate position", errutil.WithErr(err))
	}
	task.Position = pos
	if column == domain.ColumnDone {
		now := u.now().UTC()
		task.CompletedAt = &now
	}

	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, errutil.NewInternal("Failed to create task", errutil.WithErr(err))
	}

	if task.EventDate != nil && u.autoSync(ctx, ownerID) {
		u.syncTask(ctx, ownerID, task)
	}

	u.publish(ctx, ownerID, notification.KindTaskCreated, task.ID, task.Title)
	return task, nil
}

func (u *taskUsecase) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByIDWithChildren(ctx, ownerID, recurrence.ResolveID(taskID))
	if err != nil {
		return nil, errutil.NewInternal("Failed to load task", errutil.WithErr(err))
	}
	if task == nil {
		return nil, taskNotFound()
	}
	for i := range task.Attachments {
		u.signAttachment(ctx, &task.Attachments[i])
	}
	return task, nil
}

func (u *taskUsecase) ListTasks(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	query := strings.TrimSpace(filter.Query)
	if query == "" {
		tasks, err := u.taskRepo.List(ctx, ownerID, filter)
		if err != nil {
			return nil, errutil.NewInternal("Failed to list tasks", errutil.WithErr(err))
		}
		return tasks, nil
	}

	limit, offset := filter.Limit, filter.Offset
	filter.Limit, filter.Offset = 0, 0
	tasks, err := u.taskRepo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, errutil.NewInternal("Failed to list tasks", errutil.WithErr(err))
	}

	type scored struct {
		task  *domain.Task
		score float64
	}
	var hits []scored
	for _, t := range tasks {
		f := fuzzy.Fields{Title: t.Title, Project: t.Project, Description: t.Description}
		if !fuzzy.MatchFields(query, f) {
			continue
		}
		hits = append(hits, scored{task: t, score: fuzzy.Score(query, f)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]*domain.Task, 0, len(hits))
	for i, h := range hits {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h.task)
	}
	return out, nil
}

func (u *taskUsecase) CalendarView(ctx context.Context, ownerID string, start, end time.Time) ([]recurrence.Occurrence, error) {
	if !end.After(start) {
		return nil, errutil.NewBadRequest("end must be after start")
	}
	tasks, err := u.taskRepo.ListScheduled(ctx, ownerID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to list tasks", errutil.WithErr(err))
	}
	return recurrence.Expand(tasks, start, end, u.location(ctx, ownerID)), nil
}

func (u *taskUsecase) MoveTask(ctx context.Context, ownerID, taskID, column string) (*domain.Task, error) {
	to := domain.ParseColumn(column)
	if !to.Valid() {
		return nil, errutil.NewBadRequest("Invalid column: " + column)
	}

	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.ColumnID == to {
		return task, nil
	}

	if err := u.placeInColumn(ctx, task, to); err != nil {
		return nil, err
	}
	if err := u.taskRepo.Update(ctx, task); err != nil {
		return nil, errutil.NewInternal("Failed to move task", errutil.WithErr(err))
	}

	u.publish(ctx, ownerID, notification.KindTaskMoved, task.ID, string(to))
	return task, nil
}

func (u *taskUsecase) MarkDone(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return u.MoveTask(ctx, ownerID, taskID, string(domain.ColumnDone))
}

// placeInColumn appends task to the end of column and keeps completed_at in step.
func (u *taskUsecase) placeInColumn(ctx context.Context, task *domain.Task, column domain.Column) error {
	pos, err := u.positions.Next(ctx, task.UserID, string(column))
	if err != nil {
		return errutil.NewInternal("Failed to allocate position", errutil.WithErr(err))
	}

	if column == domain.ColumnDone {
		now := u.now().UTC()
		task.CompletedAt = &now
	} else if task.ColumnID == domain.ColumnDone {
		task.CompletedAt = nil
	}
	task.ColumnID = column
	task.Position = pos
	return nil
}

func (u *taskUsecase) UpdateTask(ctx context.Context, ownerID, taskID string, req TaskUpdateRequest) (*domain.Task, error) {
	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	before := syncFingerprint(task)
	hadEvent := task.GoogleCalendarEventID != nil
	loc := u.location(ctx, ownerID)

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errutil.NewBadRequest("Title is required", errutil.WithErr(domain.ErrTitleRequired))
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = domain.ParsePriority(*req.Priority)
	}
	if req.Project != nil {
		task.Project = strings.TrimSpace(*req.Project)
	}
	if req.ClientID != nil {
		task.ClientID = emptyToNil(req.ClientID)
	}
	if req.ProductID != nil {
		task.ProductID = emptyToNil(req.ProductID)
	}
	if req.EventDate != nil {
		if err := applyEventDate(task, *req.EventDate, loc); err != nil {
			return nil, err
		}
	}
	if req.RecurrenceRule != nil {
		task.RecurrenceRule = *req.RecurrenceRule
	}
	if req.RecurrencePattern != nil {
		task.RecurrencePattern = domain.RecurrencePattern(strings.ToLower(strings.TrimSpace(*req.RecurrencePattern)))
	}
	if req.RecurrenceEndDate != nil {
		if err := applyRecurrenceEnd(task, *req.RecurrenceEndDate, loc); err != nil {
			return nil, err
		}
	}
	if req.RecurrenceCount != nil {
		task.RecurrenceCount = req.RecurrenceCount
	}
	if err := normalizeRecurrence(task, loc); err != nil {
		return nil, err
	}

	moved := false
	if req.Column != nil {
		to := domain.ParseColumn(*req.Column)
		if !to.Valid() {
			return nil, errutil.NewBadRequest("Invalid column: " + *req.Column)
		}
		if to != task.ColumnID {
			if err := u.placeInColumn(ctx, task, to); err != nil {
				return nil, err
			}
			moved = true
		}
	}

	if err := u.taskRepo.Update(ctx, task); err != nil {
		return nil, errutil.NewInternal("Failed to update task", errutil.WithErr(err))
	}

	switch {
	case task.EventDate == nil && hadEvent && u.calendar != nil:
		if err := u.calendar.DeleteTaskEvent(ctx, ownerID, task); err != nil {
			zap.L().Warn("[TaskUsecase] Failed to remove calendar event", zap.String("task_id", task.ID), zap.Error(err))
		}
	case task.EventDate != nil && syncFingerprint(task) != before && u.autoSync(ctx, ownerID):
		u.syncTask(ctx, ownerID, task)
	}

	kind := notification.KindTaskUpdated
	if moved {
		kind = notification.KindTaskMoved
	}
	u.publish(ctx, ownerID, kind, task.ID, task.Title)
	return task, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("task_id", task.ID))

	if task.GoogleCalendarEventID != nil && u.calendar != nil {
		if err := u.calendar.DeleteTaskEvent(ctx, ownerID, task); err != nil {
			log.Warn("[TaskUsecase] Calendar event delete failed, deleting task anyway", zap.Error(err))
		}
	}

	if u.store != nil {
		attachments, err := u.attachmentRepo.ListByTask(ctx, ownerID, task.ID)
		if err != nil {
			log.Warn("[TaskUsecase] Failed to list attachments for cleanup", zap.Error(err))
		}
		for _, a := range attachments {
			if err := u.store.Remove(ctx, a.FilePath); err != nil {
				log.Warn("[TaskUsecase] Failed to remove attachment object", zap.String("path", a.FilePath), zap.Error(err))
			}
		}
	}

	if err := u.taskRepo.Delete(ctx, ownerID, task.ID); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return taskNotFound()
		}
		return errutil.NewInternal("Failed to delete task", errutil.WithErr(err))
	}

	u.publish(ctx, ownerID, notification.KindTaskDeleted, task.ID, task.Title)
	return nil
}

func (u *taskUsecase) ArchiveCompleted(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	now = now.UTC()
	n, err := u.taskRepo.ArchiveCompletedBefore(ctx, ownerID, now.Add(-u.retention), now)
	if err != nil {
		return 0, errutil.NewInternal("Failed to archive tasks", errutil.WithErr(err))
	}
	if n > 0 && ownerID != "" {
		u.publish(ctx, ownerID, notification.KindTaskArchived, "", "")
	}
	return n, nil
}

func (u *taskUsecase) RestoreTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Archived {
		return task, nil
	}

	task.Archived = false
	task.ArchivedAt = nil
	if err := u.taskRepo.UpdateFields(ctx, ownerID, task.ID, map[string]interface{}{
		"archived":    false,
		"archived_at": nil,
	}); err != nil {
		return nil, errutil.NewInternal("Failed to restore task", errutil.WithErr(err))
	}

	u.publish(ctx, ownerID, notification.KindTaskUpdated, task.ID, task.Title)
	return task, nil
}

// findTask resolves instance ids to their task and enforces ownership.
func (u *taskUsecase) findTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, ownerID, recurrence.ResolveID(taskID))
	if err != nil {
		return nil, errutil.NewInternal("Failed to load task", errutil.WithErr(err))
	}
	if task == nil {
		return nil, taskNotFound()
	}
	return task, nil
}

func (u *taskUsecase) location(ctx context.Context, ownerID string) *time.Location {
	if u.calendar != nil {
		if loc := u.calendar.Location(ctx, ownerID); loc != nil {
			return loc
		}
	}
	return u.defaultLoc
}

func (u *taskUsecase) autoSync(ctx context.Context, ownerID string) bool {
	return u.calendar != nil && u.calendar.AutoSyncEnabled(ctx, ownerID)
}

// syncTask pushes task to the calendar. The outcome is recorded on the task, so a
// failure never fails the surrounding write.
func (u *taskUsecase) syncTask(ctx context.Context, ownerID string, task *domain.Task) {
	if err := u.calendar.SyncTask(ctx, ownerID, task); err != nil {
		zap.L().Warn("[TaskUsecase] Calendar sync failed", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (u *taskUsecase) publish(ctx context.Context, ownerID string, kind notification.Kind, entityID, summary string) {
	u.publisher.Publish(ctx, notification.ChangeEvent{
		UserID:   ownerID,
		Kind:     kind,
		EntityID: entityID,
		Actor:    string(domain.ActorFrom(ctx)),
		Summary:  summary,
		At:       u.now().UTC(),
	})
}

func taskNotFound() error {
	return errutil.NewNotFound("Task not found", errutil.WithErr(domain.ErrTaskNotFound))
}

func applyEventDate(task *domain.Task, raw string, loc *time.Location) error {
	if strings.TrimSpace(raw) == "" {
		task.EventDate = nil
		task.AllDay = false
		return nil
	}
	t, allDay, err := timeutil.ParseEventDate(raw, loc)
	if err != nil {
		return errutil.NewBadRequest("Invalid event_date: "+raw, errutil.WithErr(err))
	}
	task.EventDate = &t
	task.AllDay = allDay
	return nil
}

func applyRecurrenceEnd(task *domain.Task, raw string, loc *time.Location) error {
	if strings.TrimSpace(raw) == "" {
		task.RecurrenceEndDate = nil
		return nil
	}
	t, _, err := timeutil.ParseEventDate(raw, loc)
	if err != nil {
		return errutil.NewBadRequest("Invalid recurrence_end_date: "+raw, errutil.WithErr(err))
	}
	task.RecurrenceEndDate = &t
	return nil
}

// normalizeRecurrence drops recurrence from unanchored tasks, canonicalizes the rule and
// rejects rules that cannot be expanded.
func normalizeRecurrence(task *domain.Task, loc *time.Location) error {
	task.RecurrenceRule = recurrence.Normalize(task.RecurrenceRule)
	if task.RecurrenceCount != nil && *task.RecurrenceCount <= 0 {
		task.RecurrenceCount = nil
	}
	if task.EventDate == nil || task.RecurrenceRule == "" {
		task.RecurrenceRule = ""
		task.RecurrencePattern = ""
		task.RecurrenceEndDate = nil
		task.RecurrenceCount = nil
		return nil
	}

	if _, ok := recurrence.Parse(recurrence.FromTask(task, loc)); !ok {
		return errutil.NewBadRequest("Invalid recurrence_rule: " + task.RecurrenceRule)
	}
	switch task.RecurrencePattern {
	case domain.PatternDaily, domain.PatternWeekly, domain.PatternMonthly, domain.PatternYearly:
	default:
		task.RecurrencePattern = recurrence.PatternOf(task.RecurrenceRule)
	}
	return nil
}

type fingerprint struct {
	title, description, rule string
	priority                 domain.Priority
	eventDate, endDate       int64
	allDay                   bool
	count                    int
}

// syncFingerprint captures the fields that appear on the calendar event.
func syncFingerprint(t *domain.Task) fingerprint {
	f := fingerprint{
		title:       t.Title,
		description: t.Description,
		rule:        t.RecurrenceRule,
		priority:    t.Priority,
		allDay:      t.AllDay,
	}
	if t.EventDate != nil {
		f.eventDate = t.EventDate.UnixNano()
	}
	if t.RecurrenceEndDate != nil {
		f.endDate = t.RecurrenceEndDate.UnixNano()
	}
	if t.RecurrenceCount != nil {
		f.count = *t.RecurrenceCount
	}
	return f
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
