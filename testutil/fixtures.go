package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/models"
)

// NewUser builds a stored-looking account. Passwords are left empty.
func NewUser(name, email string, role models.Role) models.User {
	now := time.Now()
	return models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddUser stores a new account in s and returns it.
func AddUser(t *testing.T, s *UserStore, name, email string, role models.Role) models.User {
	t.Helper()
	u := NewUser(name, email, role)
	if err := s.Insert(context.Background(), &u); err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return u
}

// NewTask builds a task assigned to the given accounts.
func NewTask(title string, status models.TaskStatus, assignees ...primitive.ObjectID) models.Task {
	now := time.Now()
	if assignees == nil {
		assignees = []primitive.ObjectID{}
	}
	return models.Task{
		ID:            primitive.NewObjectID(),
		Title:         title,
		Priority:      models.PriorityMedium,
		Status:        status,
		DueDate:       now.Add(24 * time.Hour),
		AssignedTo:    assignees,
		Attachments:   []string{},
		TodoChecklist: []models.ChecklistItem{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
