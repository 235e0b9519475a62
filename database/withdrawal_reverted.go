package database

import (
	"context"
	"fmt"

	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *Database) CreateWithdrawalReverted(ctx context.Context, reverted models.WithdrawalReverted) error {
	collection := db.client.Database(db.databaseName).Collection("withdrawals_reverted")

	filter := bson.D{{Key: "withdrawal_hash", Value: reverted.WithdrawalHash}}
	update := bson.D{{
		Key:   "$set",
		Value: reverted,
	}}

	_, err := collection.UpdateOne(
		ctx,
		filter,
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert withdrawal reverted: %w", err)
	}

	return nil
}

// GetWithdrawalRevertedByHash gets a withdrawal reverted record by its withdrawal hash
func (db *Database) GetWithdrawalRevertedByHash(ctx context.Context, withdrawalHash string) (models.WithdrawalReverted, error) {
	collection := db.client.Database(db.databaseName).Collection("withdrawals_reverted")

	filter := bson.D{{Key: "withdrawal_hash", Value: withdrawalHash}}

	var reverted models.WithdrawalReverted
	if err := collection.FindOne(ctx, filter).Decode(&reverted); err != nil {
		return models.WithdrawalReverted{}, fmt.Errorf("failed to get withdrawal reverted by hash: %w", err)
	}

	return reverted, nil
}
