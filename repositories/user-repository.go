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

type MongoUserRepository struct {
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
}

func NewUserRepository(collection *mongo.Collection, breaker *gobreaker.CircuitBreaker) *MongoUserRepository {
	return &MongoUserRepository{collection: collection, breaker: breaker}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create unique index on user email: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Insert(ctx context.Context, user *models.User) error {
	return guard(r.breaker, func() error {
		if user.ID.IsZero() {
			user.ID = primitive.NewObjectID()
		}
		_, err := r.collection.InsertOne(ctx, user)
		return writeErr("insert user", err)
	})
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := guard(r.breaker, func() error {
		return findErr("user", r.collection.FindOne(ctx, filter).Decode(&user))
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoUserRepository) Find(ctx context.Context, role models.Role) ([]models.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return r.find(ctx, filter)
}

func (r *MongoUserRepository) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	users := []models.User{}
	err := guard(r.breaker, func() error {
		cursor, err := r.collection.Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to fetch users: %w", err)
		}
		defer cursor.Close(ctx)

		if err := cursor.All(ctx, &users); err != nil {
			return fmt.Errorf("failed to parse users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepository) Update(ctx context.Context, user *models.User) error {
	return guard(r.breaker, func() error {
		result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
		if err != nil {
			return writeErr("update user", err)
		}
		return affected(result.MatchedCount)
	})
}
