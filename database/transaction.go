package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func buildFilter(f models.Filter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Account != "" {
		filter["account"] = f.Account
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	return filter
}

// GetTransactions returns the combined deposit and withdrawal history, newest
// first, with finalize and revert records joined onto withdrawals.
func (db *Database) GetTransactions(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	collection := db.client.Database(db.databaseName).Collection("deposits")

	mongoFilter := buildFilter(filter)
	skip := (page - 1) * pageSize

	// Pipeline to transform and combine deposits and withdrawals
	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.D{
			{Key: "type", Value: "deposit"},
		}}},
		{{Key: "$unionWith", Value: bson.D{
			{Key: "coll", Value: "withdrawals"},
			{Key: "pipeline", Value: mongo.Pipeline{
				{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: "withdrawals_finalized"},
					{Key: "localField", Value: "withdrawal_hash"},
					{Key: "foreignField", Value: "withdrawal_hash"},
					{Key: "as", Value: "finalize_tx"},
				}}},
				{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: "withdrawals_reverted"},
					{Key: "localField", Value: "withdrawal_hash"},
					{Key: "foreignField", Value: "withdrawal_hash"},
					{Key: "as", Value: "revert_tx"},
				}}},
				{{Key: "$unwind", Value: bson.D{
					{Key: "path", Value: "$finalize_tx"},
					{Key: "preserveNullAndEmptyArrays", Value: true},
				}}},
				{{Key: "$unwind", Value: bson.D{
					{Key: "path", Value: "$revert_tx"},
					{Key: "preserveNullAndEmptyArrays", Value: true},
				}}},
				{{Key: "$addFields", Value: bson.D{{Key: "type", Value: "withdrawal"}}}},
			}},
		}}},
		{{Key: "$match", Value: mongoFilter}},
		{{Key: "$facet", Value: bson.D{
			{Key: "metadata", Value: bson.A{
				bson.D{{Key: "$count", Value: "total"}},
			}},
			{Key: "transactions", Value: bson.A{
				bson.D{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
				bson.D{{Key: "$skip", Value: skip}},
				bson.D{{Key: "$limit", Value: pageSize}},
			}},
		}}},
	}

	opts := options.Aggregate().
		SetMaxTime(30 * time.Second).
		SetBatchSize(1000).
		SetAllowDiskUse(true)

	cursor, err := collection.Aggregate(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute transaction aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var result []bson.M
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	if len(result) == 0 {
		return &models.PaginatedResult{
			Items:      []interface{}{},
			TotalCount: 0,
			Page:       page,
			PageSize:   pageSize,
		}, nil
	}

	facetResult := result[0]
	metadata := facetResult["metadata"].(primitive.A)
	transactions := facetResult["transactions"].(primitive.A)

	totalCount := int32(0)
	if len(metadata) > 0 {
		totalCount = metadata[0].(bson.M)["total"].(int32)
	}

	// Convert documents to the common Transaction model
	transactionResults := make([]interface{}, len(transactions))
	for i, t := range transactions {
		raw, err := bson.Marshal(t.(bson.M))
		if err != nil {
			return nil, fmt.Errorf("failed to re-marshal transaction: %w", err)
		}
		var transaction models.Transaction
		if err := bson.Unmarshal(raw, &transaction); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		transactionResults[i] = transaction
	}

	return &models.PaginatedResult{
		Items:      transactionResults,
		TotalCount: int64(totalCount),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
