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

type MongoContestantRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

func NewMongoContestantRepository(db *MongoDB) *MongoContestantRepository {
	collection := db.GetCollection("contestants")
	logger := logging.WithPrefix("mongo_contestant_repo")

	// Name is the identity key within a season, for pick resolution and
	// roster sync upserts.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "season_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logger.Errorf("Failed to create index on contestants collection: %v", err)
	}

	return &MongoContestantRepository{
		collection: collection,
		logger:     logger,
	}
}

// FindBySeason returns a season's full roster sorted by name so repeated
// reads hand the scoring engine an identical snapshot.
func (r *MongoContestantRepository) FindBySeason(ctx context.Context, seasonID string) ([]models.Contestant, error) {
	ctx, cancel := withTimeout(ctx, MediumTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"season_id": seasonID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find contestants for season %s: %w", seasonID, err)
	}
	defer cursor.Close(ctx)

	var contestants []models.Contestant
	if err := cursor.All(ctx, &contestants); err != nil {
		return nil, fmt.Errorf("failed to decode contestants: %w", err)
	}
	return contestants, nil
}

func (r *MongoContestantRepository) FindByName(ctx context.Context, seasonID, name string) (*models.Contestant, error) {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	var contestant models.Contestant
	err := r.collection.FindOne(ctx, bson.M{"season_id": seasonID, "name": name}).Decode(&contestant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contestant %s in season %s: %w", name, seasonID, err)
	}
	return &contestant, nil
}

// BulkUpsert writes a synced roster in one unordered batch. It only sets
// the fields a sync owns (tribe and placement), so bonus tallies entered
// by an admin survive every sync.
func (r *MongoContestantRepository) BulkUpsert(ctx context.Context, seasonID string, contestants []models.Contestant) error {
	if len(contestants) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx, LongTimeout)
	defer cancel()

	operations := make([]mongo.WriteModel, 0, len(contestants))
	now := time.Now()
	for i := range contestants {
		c := &contestants[i]
		filter := bson.M{"season_id": seasonID, "name": c.Name}
		set := bson.M{
			"season_id":  seasonID,
			"name":       c.Name,
			"tribe":      c.Tribe,
			"updated_at": now,
		}
		update := bson.M{"$set": set}
		if c.Placement != nil {
			set["placement"] = *c.Placement
		} else {
			update["$unset"] = bson.M{"placement": ""}
		}

		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	result, err := r.collection.BulkWrite(ctx, operations, opts)
	if err != nil {
		r.logger.Errorf("Bulk write error details: %v", err)
		return fmt.Errorf("bulk upsert failed: %w", err)
	}

	r.logger.Infof("Synced %d contestants for season %s: %d inserted, %d modified",
		len(contestants), seasonID, result.UpsertedCount, result.ModifiedCount)
	return nil
}

// UpdatePlacement records a final placement, or clears it when placement
// is nil (admin correction of a bad sync).
func (r *MongoContestantRepository) UpdatePlacement(ctx context.Context, seasonID, name string, placement *int) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if placement != nil {
		update["$set"].(bson.M)["placement"] = *placement
	} else {
		update["$unset"] = bson.M{"placement": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"season_id": seasonID, "name": name}, update)
	if err != nil {
		return fmt.Errorf("failed to update placement for %s: %w", name, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("contestant %s not found in season %s", name, seasonID)
	}
	return nil
}

// IncrementBonus adjusts a bonus event tally by n. Tallies never go
// negative; an over-correction clamps the key back to absent.
func (r *MongoContestantRepository) IncrementBonus(ctx context.Context, seasonID, name, key string, n int) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	filter := bson.M{"season_id": seasonID, "name": name}
	update := bson.M{
		"$inc": bson.M{"bonuses." + key: n},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to adjust bonus %s for %s: %w", key, name, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("contestant %s not found in season %s", name, seasonID)
	}

	// Drop the key if the adjustment pushed the tally to zero or below.
	cleanup := bson.M{"$unset": bson.M{"bonuses." + key: ""}}
	cleanupFilter := bson.M{"season_id": seasonID, "name": name, "bonuses." + key: bson.M{"$lte": 0}}
	if _, err := r.collection.UpdateOne(ctx, cleanupFilter, cleanup); err != nil {
		return fmt.Errorf("failed to clamp bonus %s for %s: %w", key, name, err)
	}
	return nil
}

// SetBonuses replaces a contestant's whole bonus tally map, used by the
// seed importer where increments would double-count on a re-run.
func (r *MongoContestantRepository) SetBonuses(ctx context.Context, seasonID, name string, bonuses map[string]int) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if len(bonuses) > 0 {
		update["$set"].(bson.M)["bonuses"] = bonuses
	} else {
		update["$unset"] = bson.M{"bonuses": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"season_id": seasonID, "name": name}, update)
	if err != nil {
		return fmt.Errorf("failed to set bonuses for %s: %w", name, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("contestant %s not found in season %s", name, seasonID)
	}
	return nil
}

// DeleteByName removes one contestant from a season's roster. Entries
// still picking the name keep it; the engine scores unknown names as zero.
func (r *MongoContestantRepository) DeleteByName(ctx context.Context, seasonID, name string) error {
	ctx, cancel := withTimeout(ctx, ShortTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"season_id": seasonID, "name": name})
	if err != nil {
		return fmt.Errorf("failed to delete contestant %s from season %s: %w", name, seasonID, err)
	}
	if result.DeletedCount > 0 {
		r.logger.Infof("Removed %s from season %s", name, seasonID)
	}
	return nil
}

func (r *MongoContestantRepository) DeleteBySeason(ctx context.Context, seasonID string) error {
	ctx, cancel := withTimeout(ctx, MediumTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"season_id": seasonID})
	if err != nil {
		return fmt.Errorf("failed to clear contestants for season %s: %w", seasonID, err)
	}
	r.logger.Infof("Cleared %d contestants from season %s", result.DeletedCount, seasonID)
	return nil
}
