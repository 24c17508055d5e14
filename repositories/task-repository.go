package repositories

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ACondori95/admin-tarea/models"
)

type MongoTaskRepository struct {
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
}

func NewTaskRepository(collection *mongo.Collection, breaker *gobreaker.CircuitBreaker) *MongoTaskRepository {
	return &MongoTaskRepository{collection: collection, breaker: breaker}
}

// EnsureIndexes creates the indexes behind the assignee-scoped and recent-task queries.
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) Insert(ctx context.Context, task *models.Task) error {
	return guard(r.breaker, func() error {
		if task.ID.IsZero() {
			task.ID = primitive.NewObjectID()
		}
		_, err := r.collection.InsertOne(ctx, task)
		return writeErr("create task", err)
	})
}

func (r *MongoTaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := guard(r.breaker, func() error {
		return findErr("task", r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task))
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *MongoTaskRepository) Find(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return r.find(ctx, taskQuery(filter))
}

func (r *MongoTaskRepository) Recent(ctx context.Context, filter models.TaskFilter, limit int64) ([]models.Task, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	return r.find(ctx, taskQuery(filter), opts)
}

func (r *MongoTaskRepository) find(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]models.Task, error) {
	tasks := []models.Task{}
	err := guard(r.breaker, func() error {
		cursor, err := r.collection.Find(ctx, query, opts...)
		if err != nil {
			return fmt.Errorf("failed to retrieve tasks: %w", err)
		}
		defer cursor.Close(ctx)

		if err := cursor.All(ctx, &tasks); err != nil {
			return fmt.Errorf("failed to decode tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Count(ctx context.Context, filter models.TaskFilter) (int64, error) {
	var n int64
	err := guard(r.breaker, func() error {
		var err error
		n, err = r.collection.CountDocuments(ctx, taskQuery(filter))
		if err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}
		return nil
	})
	return n, err
}

func (r *MongoTaskRepository) CountByField(ctx context.Context, field GroupField, filter models.TaskFilter) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: taskQuery(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + string(field)},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	var counts map[string]int64
	err := guard(r.breaker, func() error {
		cursor, err := r.collection.Aggregate(ctx, pipeline)
		if err != nil {
			return fmt.Errorf("failed to aggregate tasks by %s: %w", field, err)
		}
		defer cursor.Close(ctx)

		if counts, err = decodeCounts(ctx, cursor); err != nil {
			return fmt.Errorf("failed to decode %s distribution: %w", field, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *MongoTaskRepository) Replace(ctx context.Context, task *models.Task) error {
	return guard(r.breaker, func() error {
		result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
		if err != nil {
			return writeErr("update task", err)
		}
		return affected(result.MatchedCount)
	})
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return guard(r.breaker, func() error {
		result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return affected(result.DeletedCount)
	})
}
