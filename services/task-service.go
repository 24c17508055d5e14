package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/logging"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/repositories"
)

const (
	msgTaskNotFound      = "Task not found"
	msgAssigneesInvalid  = "assignedTo must be an array of user IDs"
	msgAdminsOnly        = "Access denied, admins only"
	msgNotAuthorized     = "Not authorized"
	msgChecklistNotYours = "You are not authorized to update this checklist"
)

type TaskService struct {
	tasks repositories.TaskRepository
	users repositories.UserRepository
	now   func() time.Time
}

func NewTaskService(tasks repositories.TaskRepository, users repositories.UserRepository) *TaskService {
	return &TaskService{tasks: tasks, users: users, now: time.Now}
}

// ListTasks returns the tasks visible to actor, optionally narrowed to one status,
// together with the status summary for the same scope.
func (s *TaskService) ListTasks(ctx context.Context, actor models.Identity, status models.TaskStatus) (*models.TaskList, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.Validation("Invalid status filter")
	}

	scope := scopeFor(actor)
	filter := scope
	filter.Status = status

	tasks, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("failed to list tasks", err)
	}
	views, err := s.joinAssignees(ctx, tasks)
	if err != nil {
		return nil, err
	}
	for i := range views {
		n := views[i].CompletedCount()
		views[i].CompletedTodoCount = &n
	}

	all, err := s.tasks.Count(ctx, scope)
	if err != nil {
		return nil, apperrors.Internal("failed to count tasks", err)
	}
	summary := models.StatusSummary{All: all}
	buckets := []struct {
		status models.TaskStatus
		dst    *int64
	}{
		{models.StatusPending, &summary.PendingTasks},
		{models.StatusInProgress, &summary.InProgressTasks},
		{models.StatusCompleted, &summary.CompletedTasks},
	}
	for _, b := range buckets {
		// A bucket is the status filter AND the bucket's own status, so it is
		// empty whenever a different status is being filtered on.
		if status != "" && status != b.status {
			continue
		}
		f := scope
		f.Status = b.status
		n, err := s.tasks.Count(ctx, f)
		if err != nil {
			return nil, apperrors.Internal("failed to count tasks by status", err)
		}
		*b.dst = n
	}

	return &models.TaskList{Tasks: views, StatusSummary: summary}, nil
}

func (s *TaskService) GetTask(ctx context.Context, actor models.Identity, id string) (*models.TaskView, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanViewTask(actor, task) {
		return nil, apperrors.Authorization(msgNotAuthorized)
	}
	return s.joinOne(ctx, task)
}

func (s *TaskService) CreateTask(ctx context.Context, actor models.Identity, input models.TaskInput) (*models.Task, error) {
	if !CanManageTasks(actor) {
		return nil, apperrors.Authorization(msgAdminsOnly)
	}

	assignees, err := parseAssignees(input.AssignedTo)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.Validation("Title is required")
	}
	if input.DueDate == nil || input.DueDate.IsZero() {
		return nil, apperrors.Validation("Due date is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.Validation("Invalid priority")
	}
	checklist, err := validChecklist(input.TodoChecklist)
	if err != nil {
		return nil, err
	}
	attachments := input.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	now := s.now()
	task := &models.Task{
		ID:            primitive.NewObjectID(),
		Title:         input.Title,
		Description:   input.Description,
		Priority:      priority,
		Status:        models.StatusPending,
		DueDate:       *input.DueDate,
		AssignedTo:    assignees,
		CreatedBy:     actor.ID,
		Attachments:   attachments,
		TodoChecklist: checklist,
		Progress:      0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, apperrors.Internal("failed to create task", err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created by %s with %d assignees", task.ID.Hex(), actor.ID.Hex(), len(assignees))
	return task, nil
}

// UpdateTask merges patch over the stored task.
func (s *TaskService) UpdateTask(ctx context.Context, actor models.Identity, id string, patch models.TaskPatch) (*models.Task, error) {
	if !CanManageTasks(actor) {
		return nil, apperrors.Authorization(msgAdminsOnly)
	}
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.Validation("Title is required")
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperrors.Validation("Invalid priority")
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil && !patch.DueDate.IsZero() {
		task.DueDate = *patch.DueDate
	}
	if patch.TodoChecklist != nil {
		checklist, err := validChecklist(patch.TodoChecklist)
		if err != nil {
			return nil, err
		}
		task.ReplaceChecklist(checklist)
	}
	if patch.Attachments != nil {
		task.Attachments = patch.Attachments
	}
	if patch.AssignedTo != nil {
		assignees, err := parseAssignees(patch.AssignedTo)
		if err != nil {
			return nil, err
		}
		task.AssignedTo = assignees
	}

	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated by %s", task.ID.Hex(), actor.ID.Hex())
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, actor models.Identity, id string) error {
	if !CanManageTasks(actor) {
		return apperrors.Authorization(msgAdminsOnly)
	}
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}

	err = s.tasks.Delete(ctx, task.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return apperrors.Internal("failed to delete task", err)
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted by %s", task.ID.Hex(), actor.ID.Hex())
	return nil
}

// UpdateTaskStatus sets the status directly. An empty status keeps the current one.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actor models.Identity, id string, status models.TaskStatus) (*models.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanUpdateProgress(actor, task) {
		return nil, apperrors.Authorization(msgNotAuthorized)
	}
	if status == "" {
		status = task.Status
	}
	if !status.Valid() {
		return nil, apperrors.Validation("Invalid status")
	}

	task.SetStatus(status)
	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_STATUS_CHANGED, Description: Task %s set to '%s' by %s", task.ID.Hex(), status, actor.ID.Hex())
	return task, nil
}

// UpdateTaskChecklist replaces the checklist and rederives progress and status.
func (s *TaskService) UpdateTaskChecklist(ctx context.Context, actor models.Identity, id string, items []models.ChecklistItem) (*models.TaskView, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanUpdateProgress(actor, task) {
		return nil, apperrors.Authorization(msgChecklistNotYours)
	}
	checklist, err := validChecklist(items)
	if err != nil {
		return nil, err
	}

	task.ReplaceChecklist(checklist)
	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_CHECKLIST_UPDATED, Description: Task %s at %d%% (%s)", task.ID.Hex(), task.Progress, task.Status)

	stored, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.joinOne(ctx, stored)
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(msgTaskNotFound)
	}
	task, err := s.tasks.FindByID(ctx, oid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load task", err)
	}
	return task, nil
}

func (s *TaskService) save(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = s.now()
	err := s.tasks.Replace(ctx, task)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return apperrors.Internal("failed to save task", err)
	}
	return nil
}

func (s *TaskService) joinOne(ctx context.Context, task *models.Task) (*models.TaskView, error) {
	views, err := s.joinAssignees(ctx, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// joinAssignees replaces assignee ids with display data, dropping ids with no account.
func (s *TaskService) joinAssignees(ctx context.Context, tasks []models.Task) ([]models.TaskView, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, t := range tasks {
		for _, id := range t.AssignedTo {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	byID := map[primitive.ObjectID]models.UserSummary{}
	if len(ids) > 0 {
		users, err := s.users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, apperrors.Internal("failed to load assignees", err)
		}
		for _, u := range users {
			byID[u.ID] = u.Summary()
		}
	}

	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		assignees := []models.UserSummary{}
		for _, id := range t.AssignedTo {
			if u, ok := byID[id]; ok {
				assignees = append(assignees, u)
			}
		}
		views = append(views, models.TaskView{Task: t, AssignedTo: assignees})
	}
	return views, nil
}

// scopeFor limits members to the tasks they are assigned to.
func scopeFor(actor models.Identity) models.TaskFilter {
	if actor.IsAdmin() {
		return models.TaskFilter{}
	}
	id := actor.ID
	return models.TaskFilter{Assignee: &id}
}

// parseAssignees turns a non-empty list of hex ids into a de-duplicated id set.
func parseAssignees(raw []string) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, apperrors.Validation(msgAssigneesInvalid)
	}
	seen := map[primitive.ObjectID]bool{}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, apperrors.Validation(msgAssigneesInvalid)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func validChecklist(items []models.ChecklistItem) ([]models.ChecklistItem, error) {
	out := make([]models.ChecklistItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			return nil, apperrors.Validation("Checklist items require text")
		}
		out = append(out, item)
	}
	return out, nil
}
