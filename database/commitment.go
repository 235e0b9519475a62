package database

import (
	"context"
	"fmt"

	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateCommitment records a published commitment root. Commitments are
// immutable, so a duplicate sequence is dropped rather than updated.
func (db *Database) CreateCommitment(ctx context.Context, commitment models.Commitment) error {
	collection := db.client.Database(db.databaseName).Collection("commitments")

	_, err := collection.InsertOne(ctx, commitment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create commitment: %w", err)
	}
	return nil
}

// GetCommitment gets a commitment by its sequence number
func (db *Database) GetCommitment(ctx context.Context, seq uint64) (models.Commitment, error) {
	collection := db.client.Database(db.databaseName).Collection("commitments")

	var commitment models.Commitment
	if err := collection.FindOne(ctx, bson.D{{Key: "commitment_seq", Value: seq}}).Decode(&commitment); err != nil {
		return models.Commitment{}, fmt.Errorf("failed to get commitment: %w", err)
	}

	return commitment, nil
}
