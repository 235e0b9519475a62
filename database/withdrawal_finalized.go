package database

import (
	"context"
	"fmt"

	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *Database) CreateWithdrawalFinalized(ctx context.Context, finalized models.WithdrawalFinalized) error {
	collection := db.client.Database(db.databaseName).Collection("withdrawals_finalized")

	filter := bson.D{{Key: "withdrawal_hash", Value: finalized.WithdrawalHash}}
	update := bson.D{{
		Key:   "$set",
		Value: finalized,
	}}

	_, err := collection.UpdateOne(
		ctx,
		filter,
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert withdrawal finalized: %w", err)
	}

	return nil
}

// GetWithdrawalFinalizedByHash gets a withdrawal finalized record by its withdrawal hash
func (db *Database) GetWithdrawalFinalizedByHash(ctx context.Context, withdrawalHash string) (models.WithdrawalFinalized, error) {
	collection := db.client.Database(db.databaseName).Collection("withdrawals_finalized")

	filter := bson.D{{Key: "withdrawal_hash", Value: withdrawalHash}}

	var finalized models.WithdrawalFinalized
	if err := collection.FindOne(ctx, filter).Decode(&finalized); err != nil {
		return models.WithdrawalFinalized{}, fmt.Errorf("failed to get withdrawal finalized by hash: %w", err)
	}

	return finalized, nil
}
