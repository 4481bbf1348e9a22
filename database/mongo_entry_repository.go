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

type MongoEntryRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

func NewMongoEntryRepository(db *MongoDB) *MongoEntryRepository {
	collection := db.GetCollection("entries")
	logger := logging.WithPrefix("mongo_entry_repo")

	// One entry per player per season; resubmission replaces in place.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "season_id", Value: 1}, {Key: "player_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logger.Errorf("Failed to create index on entries collection: %v", err)
	}

	return &MongoEntryRepository{
		collection: collection,
		logger:     logger,
	}
}

// Upsert stores an entry keyed by (season, player). A resubmission keeps
// the original _id and created_at, so a player's rank tiebreak position
// never moves when they edit their picks.
func (r *MongoEntryRepository) Upsert(ctx context.Context, entry *models.Entry) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	filter := bson.M{"season_id": entry.SeasonID, "player_name": entry.PlayerName}
	update := bson.M{
		"$set": bson.M{
			"season_id":   entry.SeasonID,
			"player_name": entry.PlayerName,
			"picks":       entry.Picks,
			"alternates":  entry.Alternates,
			"updated_at":  time.Now(),
		},
		"$setOnInsert": bson.M{
			"_id":        entry.ID,
			"created_at": entry.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert entry for %s: %w", entry.PlayerName, err)
	}
	if result.UpsertedCount > 0 {
		r.logger.Infof("New entry from %s for season %s", entry.PlayerName, entry.SeasonID)
	} else {
		r.logger.Infof("Updated entry from %s for season %s", entry.PlayerName, entry.SeasonID)
	}
	return nil
}

// FindBySeason returns a season's entries in submission order: created_at
// ascending, player name breaking the rare same-instant tie. This order
// defines rank tiebreaks, so it must be stable across reads.
func (r *MongoEntryRepository) FindBySeason(ctx context.Context, seasonID string) ([]models.Entry, error) {
	ctx, cancel := withTimeout(ctx, MediumTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "player_name", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"season_id": seasonID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find entries for season %s: %w", seasonID, err)
	}
	defer cursor.Close(ctx)

	var entries []models.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	return entries, nil
}

func (r *MongoEntryRepository) FindByPlayer(ctx context.Context, seasonID, playerName string) (*models.Entry, error) {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	var entry models.Entry
	err := r.collection.FindOne(ctx, bson.M{"season_id": seasonID, "player_name": playerName}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entry for %s: %w", playerName, err)
	}
	return &entry, nil
}

func (r *MongoEntryRepository) Delete(ctx context.Context, seasonID, playerName string) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"season_id": seasonID, "player_name": playerName})
	if err != nil {
		return fmt.Errorf("failed to delete entry for %s: %w", playerName, err)
	}
	if result.DeletedCount > 0 {
		r.logger.Infof("Deleted entry from %s in season %s", playerName, seasonID)
	}
	return nil
}

func (r *MongoEntryRepository) DeleteBySeason(ctx context.Context, seasonID string) error {
	ctx, cancel := withTimeout(ctx, MediumTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"season_id": seasonID})
	if err != nil {
		return fmt.Errorf("failed to clear entries for season %s: %w", seasonID, err)
	}
	r.logger.Infof("Cleared %d entries from season %s", result.DeletedCount, seasonID)
	return nil
}

func (r *MongoEntryRepository) Count(ctx context.Context, seasonID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"season_id": seasonID})
	if err != nil {
		return 0, fmt.Errorf("failed to count entries for season %s: %w", seasonID, err)
	}
	return count, nil
}
