package database

import (
	"context"
	"fmt"

	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpdateCursor stores the last applied event sequence for a consumer stream.
func (db *Database) UpdateCursor(ctx context.Context, stream string, sequence uint64) error {
	collection := db.client.Database(db.databaseName).Collection("cursors")

	filter := bson.D{{Key: "stream", Value: stream}}
	update := bson.D{{
		Key: "$set",
		Value: bson.D{{
			Key: "sequence", Value: sequence,
		}},
	}}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}

	return nil
}

func (db *Database) GetCursor(ctx context.Context, stream string) (uint64, error) {
	collection := db.client.Database(db.databaseName).Collection("cursors")

	var result models.Cursor
	err := collection.FindOne(ctx, bson.D{{Key: "stream", Value: stream}}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// No document found - this stream hasn't been consumed yet
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get cursor: %w", err)
	}

	return result.Sequence, nil
}
