package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/models"
)

// MongoUserRepository stores admin accounts keyed by username.
type MongoUserRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

func NewMongoUserRepository(db *MongoDB) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.GetCollection("users"),
		logger:     logging.WithPrefix("mongo_user_repo"),
	}
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user %s: %w", username, err)
	}
	return &user, nil
}

// Upsert writes an admin account, replacing any existing credential for
// the same username.
func (r *MongoUserRepository) Upsert(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"password_hash": user.PasswordHash,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.Username}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.Username, err)
	}
	if result.UpsertedCount > 0 {
		r.logger.Infof("Created admin user %s", user.Username)
	}
	return nil
}

// Count reports how many admin accounts exist; startup warns when the
// answer is zero because the admin API would be unreachable.
func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
