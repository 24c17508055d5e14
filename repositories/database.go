package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection = "users"
	TasksCollection = "tasks"
)

// Database owns the Mongo client and the repositories built on it.
type Database struct {
	client *mongo.Client
	Users  *MongoUserRepository
	Tasks  *MongoTaskRepository
}

func Connect(ctx context.Context, uri, dbName string) (*Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	db := client.Database(dbName)
	d := &Database{
		client: client,
		Users:  NewUserRepository(db.Collection(UsersCollection), NewBreaker("users-store")),
		Tasks:  NewTaskRepository(db.Collection(TasksCollection), NewBreaker("tasks-store")),
	}

	if err := d.Users.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := d.Tasks.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *Database) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
