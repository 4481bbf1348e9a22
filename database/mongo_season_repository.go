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

type MongoSeasonRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

func NewMongoSeasonRepository(db *MongoDB) *MongoSeasonRepository {
	return &MongoSeasonRepository{
		collection: db.GetCollection("seasons"),
		logger:     logging.WithPrefix("mongo_season_repo"),
	}
}

// Upsert writes a season config keyed by its ID, preserving the original
// created_at across resubmissions of the same season.
func (r *MongoSeasonRepository) Upsert(ctx context.Context, season *models.Season) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":             season.Name,
			"contestant_count": season.ContestantCount,
			"picks_per_player": season.PicksPerPlayer,
			"alternate_slots":  season.AlternateSlots,
			"scoring":          season.Scoring,
			"lock_time":        season.LockTime,
			"wiki_page":        season.WikiPage,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": season.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert season %s: %w", season.ID, err)
	}
	return nil
}

func (r *MongoSeasonRepository) FindByID(ctx context.Context, id string) (*models.Season, error) {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	var season models.Season
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&season)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find season %s: %w", id, err)
	}
	return &season, nil
}

// FindAll returns every season, newest first, for the season picker.
func (r *MongoSeasonRepository) FindAll(ctx context.Context) ([]models.Season, error) {
	ctx, cancel := withTimeout(ctx, MediumTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find seasons: %w", err)
	}
	defer cursor.Close(ctx)

	var seasons []models.Season
	if err := cursor.All(ctx, &seasons); err != nil {
		return nil, fmt.Errorf("failed to decode seasons: %w", err)
	}
	return seasons, nil
}

func (r *MongoSeasonRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete season %s: %w", id, err)
	}
	if result.DeletedCount > 0 {
		r.logger.Infof("Deleted season %s", id)
	}
	return nil
}
