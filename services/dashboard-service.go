package services

import (
	"context"
	"strings"
	"time"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/repositories"
)

const (
	recentTasksLimit  = 10
	distributionTotal = "Total"
)

type DashboardService struct {
	tasks repositories.TaskRepository
	now   func() time.Time
}

func NewDashboardService(tasks repositories.TaskRepository) *DashboardService {
	return &DashboardService{tasks: tasks, now: time.Now}
}

// AdminDashboard aggregates over every task.
func (s *DashboardService) AdminDashboard(ctx context.Context, actor models.Identity) (*models.Dashboard, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization(msgAdminsOnly)
	}
	return s.build(ctx, models.TaskFilter{})
}

// UserDashboard aggregates over the tasks assigned to actor.
func (s *DashboardService) UserDashboard(ctx context.Context, actor models.Identity) (*models.Dashboard, error) {
	id := actor.ID
	return s.build(ctx, models.TaskFilter{Assignee: &id})
}

func (s *DashboardService) build(ctx context.Context, scope models.TaskFilter) (*models.Dashboard, error) {
	count := func(f models.TaskFilter) (int64, error) {
		n, err := s.tasks.Count(ctx, f)
		if err != nil {
			return 0, apperrors.Internal("failed to count dashboard tasks", err)
		}
		return n, nil
	}

	var stats models.DashboardStatistics
	var err error
	if stats.TotalTasks, err = count(scope); err != nil {
		return nil, err
	}
	pending := scope
	pending.Status = models.StatusPending
	if stats.PendingTasks, err = count(pending); err != nil {
		return nil, err
	}
	completed := scope
	completed.Status = models.StatusCompleted
	if stats.CompletedTasks, err = count(completed); err != nil {
		return nil, err
	}
	now := s.now()
	overdue := scope
	overdue.NotStatus = models.StatusCompleted
	overdue.DueBefore = &now
	if stats.OverdueTasks, err = count(overdue); err != nil {
		return nil, err
	}

	byStatus, err := s.tasks.CountByField(ctx, repositories.GroupByStatus, scope)
	if err != nil {
		return nil, apperrors.Internal("failed to group tasks by status", err)
	}
	distribution := make(map[string]int64, len(models.TaskStatuses)+1)
	for _, st := range models.TaskStatuses {
		distribution[distributionKey(string(st))] = byStatus[string(st)]
	}
	distribution[distributionTotal] = stats.TotalTasks

	byPriority, err := s.tasks.CountByField(ctx, repositories.GroupByPriority, scope)
	if err != nil {
		return nil, apperrors.Internal("failed to group tasks by priority", err)
	}
	priorities := make(map[string]int64, len(models.TaskPriorities))
	for _, p := range models.TaskPriorities {
		priorities[string(p)] = byPriority[string(p)]
	}

	tasks, err := s.tasks.Recent(ctx, scope, recentTasksLimit)
	if err != nil {
		return nil, apperrors.Internal("failed to load recent tasks", err)
	}
	recent := make([]models.RecentTask, 0, len(tasks))
	for _, t := range tasks {
		recent = append(recent, models.RecentTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Priority:  t.Priority,
			DueDate:   t.DueDate,
			CreatedAt: t.CreatedAt,
		})
	}

	return &models.Dashboard{
		Statistics: stats,
		Charts: models.DashboardCharts{
			TaskDistribution:   distribution,
			TaskPriorityLevels: priorities,
		},
		RecentTasks: recent,
	}, nil
}

// distributionKey strips whitespace so "In Progress" becomes "InProgress".
func distributionKey(status string) string {
	return strings.Join(strings.Fields(status), "")
}
