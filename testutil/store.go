// Package testutil holds in-memory stores that stand in for MongoDB in tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/repositories"
)

// UserStore is an in-memory repositories.UserRepository with a unique email index.
type UserStore struct {
	mu    sync.Mutex
	users []models.User
	// Err, when set, is returned by every call.
	Err error
}

func NewUserStore() *UserStore {
	return &UserStore{}
}

func (s *UserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users = append(s.users, *user)
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(func(u models.User) bool { return u.ID == id })
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findOne(func(u models.User) bool { return u.Email == email })
}

func (s *UserStore) findOne(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *UserStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.User{}
	for _, u := range s.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (s *UserStore) Find(_ context.Context, role models.Role) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.User{}
	for _, u := range s.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	idx := -1
	for i, u := range s.users {
		if u.ID == user.ID {
			idx = i
		} else if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if idx < 0 {
		return repositories.ErrNotFound
	}
	s.users[idx] = *user
	return nil
}

// TaskStore is an in-memory repositories.TaskRepository.
type TaskStore struct {
	mu    sync.Mutex
	tasks []models.Task
	// Err, when set, is returned by every call.
	Err error
	// Writes counts successful Insert, Replace and Delete calls.
	Writes int
}

func NewTaskStore() *TaskStore {
	return &TaskStore{}
}

// Matches applies a TaskFilter with the same semantics as the Mongo query.
func Matches(t models.Task, f models.TaskFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.NotStatus != "" && t.Status == f.NotStatus {
		return false
	}
	if f.Assignee != nil && !t.IsAssigned(*f.Assignee) {
		return false
	}
	if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
		return false
	}
	return true
}

func cloneTask(t models.Task) models.Task {
	if t.AssignedTo != nil {
		t.AssignedTo = append([]primitive.ObjectID{}, t.AssignedTo...)
	}
	if t.Attachments != nil {
		t.Attachments = append([]string{}, t.Attachments...)
	}
	if t.TodoChecklist != nil {
		t.TodoChecklist = append([]models.ChecklistItem{}, t.TodoChecklist...)
	}
	return t
}

func (s *TaskStore) Insert(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	s.tasks = append(s.tasks, cloneTask(*task))
	s.Writes++
	return nil
}

func (s *TaskStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, t := range s.tasks {
		if t.ID == id {
			found := cloneTask(t)
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *TaskStore) Find(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Task{}
	for _, t := range s.tasks {
		if Matches(t, f) {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (s *TaskStore) Count(ctx context.Context, f models.TaskFilter) (int64, error) {
	tasks, err := s.Find(ctx, f)
	return int64(len(tasks)), err
}

func (s *TaskStore) CountByField(ctx context.Context, field repositories.GroupField, f models.TaskFilter) (map[string]int64, error) {
	tasks, err := s.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, t := range tasks {
		switch field {
		case repositories.GroupByStatus:
			counts[string(t.Status)]++
		case repositories.GroupByPriority:
			counts[string(t.Priority)]++
		}
	}
	return counts, nil
}

func (s *TaskStore) Recent(ctx context.Context, f models.TaskFilter, limit int64) ([]models.Task, error) {
	tasks, err := s.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	if int64(len(tasks)) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *TaskStore) Replace(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = cloneTask(*task)
			s.Writes++
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *TaskStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.Writes++
			return nil
		}
	}
	return repositories.ErrNotFound
}

// Seed stores tasks as-is, bypassing Writes accounting.
func (s *TaskStore) Seed(tasks ...models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		s.tasks = append(s.tasks, cloneTask(t))
	}
}
