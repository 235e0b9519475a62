package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database struct {
	client       *mongo.Client
	databaseName string
	logger       *slog.Logger
}

type DatabaseOpts struct {
	URI          string
	DatabaseName string
	Logger       *slog.Logger
}

const defaultTimeout = 10 * time.Second

func NewDatabase(opts DatabaseOpts) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnecting(10).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Database{
		client:       client,
		databaseName: opts.DatabaseName,
		logger:       opts.Logger,
	}, nil
}

func (db *Database) CreateIndexes(ctx context.Context) error {
	depositsColl := db.client.Database(db.databaseName).Collection("deposits")
	_, err := depositsColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sequence", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "account", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create deposits indexes: %w", err)
	}

	withdrawalsColl := db.client.Database(db.databaseName).Collection("withdrawals")
	_, err = withdrawalsColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "withdrawal_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "withdrawal_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "account", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawals indexes: %w", err)
	}

	finalizedColl := db.client.Database(db.databaseName).Collection("withdrawals_finalized")
	_, err = finalizedColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "withdrawal_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawals_finalized index: %w", err)
	}

	revertedColl := db.client.Database(db.databaseName).Collection("withdrawals_reverted")
	_, err = revertedColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "withdrawal_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawals_reverted index: %w", err)
	}

	commitmentsColl := db.client.Database(db.databaseName).Collection("commitments")
	_, err = commitmentsColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "commitment_seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create commitments index: %w", err)
	}

	cursorColl := db.client.Database(db.databaseName).Collection("cursors")
	_, err = cursorColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stream", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create cursors index: %w", err)
	}

	return nil
}

// CreateDeposit records a deposit event. Duplicate sequences are tolerated so
// replayed event delivery is harmless.
func (db *Database) CreateDeposit(ctx context.Context, deposit models.Deposit) error {
	collection := db.client.Database(db.databaseName).Collection("deposits")

	_, err := collection.InsertOne(ctx, deposit)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

// CreateWithdrawal records an accepted withdrawal request. Duplicate
// withdrawal hashes are tolerated for the same reason as deposits.
func (db *Database) CreateWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error {
	collection := db.client.Database(db.databaseName).Collection("withdrawals")

	_, err := collection.InsertOne(ctx, withdrawal)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (db *Database) UpdateWithdrawalStatusByHash(ctx context.Context, withdrawalHash string, status string) error {
	collection := db.client.Database(db.databaseName).Collection("withdrawals")

	filter := bson.D{{Key: "withdrawal_hash", Value: withdrawalHash}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}

	_, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}

	return nil
}

// GetWithdrawalByHash gets a withdrawal record by its withdrawal hash
func (db *Database) GetWithdrawalByHash(ctx context.Context, withdrawalHash string) (models.Withdrawal, error) {
	collection := db.client.Database(db.databaseName).Collection("withdrawals")

	filter := bson.D{{Key: "withdrawal_hash", Value: withdrawalHash}}

	var withdrawal models.Withdrawal
	if err := collection.FindOne(ctx, filter).Decode(&withdrawal); err != nil {
		return models.Withdrawal{}, fmt.Errorf("failed to get withdrawal by hash: %w", err)
	}

	return withdrawal, nil
}

func (db *Database) GetWithdrawalsByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	collection := db.client.Database(db.databaseName).Collection("withdrawals")

	opts := options.Find().
		SetHint(bson.D{{Key: "status", Value: 1}}).
		SetBatchSize(1000)

	cursor, err := collection.Find(ctx, bson.D{{Key: "status", Value: status}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawals by status: %w", err)
	}
	defer cursor.Close(ctx)

	var withdrawals []models.Withdrawal
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, fmt.Errorf("failed to decode withdrawals: %w", err)
	}

	return withdrawals, nil
}
