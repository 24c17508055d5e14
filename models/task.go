package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// TaskStatuses lists every status in dashboard order.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type ChecklistItem struct {
	Text      string `bson:"text" json:"text"`
	Completed bool   `bson:"completed" json:"completed"`
}

type Task struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Priority      TaskPriority         `bson:"priority" json:"priority"`
	Status        TaskStatus           `bson:"status" json:"status"`
	DueDate       time.Time            `bson:"dueDate" json:"dueDate"`
	AssignedTo    []primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	CreatedBy     primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Attachments   []string             `bson:"attachments" json:"attachments"`
	TodoChecklist []ChecklistItem      `bson:"todoChecklist" json:"todoChecklist"`
	Progress      int                  `bson:"progress" json:"progress"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// IsAssigned reports whether userID is in the task's assignee set.
func (t *Task) IsAssigned(userID primitive.ObjectID) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Task) CompletedCount() int {
	n := 0
	for _, item := range t.TodoChecklist {
		if item.Completed {
			n++
		}
	}
	return n
}

// ChecklistProgress is the rounded completion percentage of items, 0 when empty.
func ChecklistProgress(items []ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, item := range items {
		if item.Completed {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(items)) * 100))
}

// StatusForProgress maps a progress percentage to its coarse status.
func StatusForProgress(progress int) TaskStatus {
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// ReplaceChecklist swaps the checklist wholesale and rederives progress and status.
func (t *Task) ReplaceChecklist(items []ChecklistItem) {
	if items == nil {
		items = []ChecklistItem{}
	}
	t.TodoChecklist = items
	t.Progress = ChecklistProgress(items)
	t.Status = StatusForProgress(t.Progress)
}

// SetStatus applies a direct status change. Completed overrides the checklist.
func (t *Task) SetStatus(status TaskStatus) {
	t.Status = status
	if status == StatusCompleted {
		for i := range t.TodoChecklist {
			t.TodoChecklist[i].Completed = true
		}
		t.Progress = 100
	}
}

// TaskInput is the payload of task creation.
type TaskInput struct {
	Title         string
	Description   string
	Priority      TaskPriority
	DueDate       *time.Time
	AssignedTo    []string
	TodoChecklist []ChecklistItem
	Attachments   []string
}

// TaskPatch is a merge patch over a task; nil fields are left untouched.
type TaskPatch struct {
	Title         *string
	Description   *string
	Priority      *TaskPriority
	DueDate       *time.Time
	AssignedTo    []string
	TodoChecklist []ChecklistItem
	Attachments   []string
}

// TaskView is a task with assignees joined to their display data.
type TaskView struct {
	Task
	AssignedTo         []UserSummary `json:"assignedTo"`
	CompletedTodoCount *int          `json:"completedTodoCount,omitempty"`
}

// TaskFilter scopes store queries. Zero-valued fields are ignored.
type TaskFilter struct {
	Status    TaskStatus
	NotStatus TaskStatus
	Assignee  *primitive.ObjectID
	DueBefore *time.Time
}

type StatusSummary struct {
	All             int64 `json:"all"`
	PendingTasks    int64 `json:"pendingTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	CompletedTasks  int64 `json:"completedTasks"`
}

type TaskList struct {
	Tasks         []TaskView    `json:"tasks"`
	StatusSummary StatusSummary `json:"statusSummary"`
}

type DashboardStatistics struct {
	TotalTasks     int64 `json:"totalTasks"`
	PendingTasks   int64 `json:"pendingTasks"`
	CompletedTasks int64 `json:"completedTasks"`
	OverdueTasks   int64 `json:"overdueTasks"`
}

type DashboardCharts struct {
	TaskDistribution   map[string]int64 `json:"taskDistribution"`
	TaskPriorityLevels map[string]int64 `json:"taskPriorityLevels"`
}

type RecentTask struct {
	ID        primitive.ObjectID `json:"_id"`
	Title     string             `json:"title"`
	Status    TaskStatus         `json:"status"`
	Priority  TaskPriority       `json:"priority"`
	DueDate   time.Time          `json:"dueDate"`
	CreatedAt time.Time          `json:"createdAt"`
}

type Dashboard struct {
	Statistics  DashboardStatistics `json:"statistics"`
	Charts      DashboardCharts     `json:"charts"`
	RecentTasks []RecentTask        `json:"recentTasks"`
}
