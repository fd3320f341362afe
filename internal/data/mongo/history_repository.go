// Package mongo holds the wallet history read model. The outbox poller projects
// every committed ledger entry into a capped per-account collection that backs the
// "recent activity" view; Postgres remains the source of truth.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dancecoin-ledger/internal/domain/ledger"
)

const (
	// HistoryCollectionName is the name of the wallet history collection in MongoDB
	HistoryCollectionName = "wallet_history"
)

// HistoryRepository implements ledger.HistoryRepository for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	limit  int
	logger *slog.Logger
}

// NewHistoryRepository creates a history projection that keeps at most limit entries per account
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database, limit int) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		limit:  limit,
		logger: logger,
	}
}

var _ ledger.HistoryRepository = (*HistoryRepository)(nil)

// EnsureIndexes creates the lookup and uniqueness indexes of the collection
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(HistoryCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "entry_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "entry_id", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

func newestFirst() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "entry_id", Value: -1}}
}

// Record upserts the entry by id, so redelivered outbox messages are harmless,
// then drops whatever falls beyond the retention limit for the account.
func (r *HistoryRepository) Record(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"entry_id": entry.ID}
	update := bson.M{"$setOnInsert": entry}
	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to record history entry",
			"entry_id", entry.ID.String(),
			"account_id", entry.AccountID,
			"error", err)
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	return r.trim(ctx, entry.AccountID)
}

func (r *HistoryRepository) trim(ctx context.Context, accountID string) error {
	collection := r.db.Collection(HistoryCollectionName)

	opts := options.Find().
		SetSort(newestFirst()).
		SetSkip(int64(r.limit)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := collection.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		r.logger.Error("Failed to find expired history entries", "account_id", accountID, "error", err)
		return fmt.Errorf("failed to find expired history entries: %w", err)
	}
	defer cursor.Close(ctx)

	var expired []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cursor.All(ctx, &expired); err != nil {
		return fmt.Errorf("failed to decode expired history entries: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	ids := make([]interface{}, 0, len(expired))
	for _, doc := range expired {
		ids = append(ids, doc.ID)
	}
	result, err := collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		r.logger.Error("Failed to trim history", "account_id", accountID, "error", err)
		return fmt.Errorf("failed to trim history: %w", err)
	}

	r.logger.Debug("Trimmed wallet history", "account_id", accountID, "removed", result.DeletedCount)
	return nil
}

// Recent returns up to limit entries for the account, newest first
func (r *HistoryRepository) Recent(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}

	opts := options.Find().
		SetSort(newestFirst()).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(HistoryCollectionName).Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		r.logger.Error("Failed to get history entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to get history entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*ledger.Entry, 0, limit)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}
