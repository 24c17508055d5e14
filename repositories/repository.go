package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// GroupField names a task field that distributions are grouped by.
type GroupField string

const (
	GroupByStatus   GroupField = "status"
	GroupByPriority GroupField = "priority"
)

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	// Find lists users with the given role, or every user when role is empty.
	Find(ctx context.Context, role models.Role) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type TaskRepository interface {
	Insert(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	Find(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Count(ctx context.Context, filter models.TaskFilter) (int64, error)
	CountByField(ctx context.Context, field GroupField, filter models.TaskFilter) (map[string]int64, error)
	// Recent returns at most limit tasks, newest first.
	Recent(ctx context.Context, filter models.TaskFilter, limit int64) ([]models.Task, error)
	// Replace overwrites the stored document. Last writer wins.
	Replace(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
