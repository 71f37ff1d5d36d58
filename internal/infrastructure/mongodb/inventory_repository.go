package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/pkg/metrics"
)

// InventoryRepository persists inventory aggregates. Writes after the insert
// go through a compare-and-swap on the version field; a lost race surfaces
// as OptimisticLockError so the caller can retry the whole operation.
type InventoryRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewInventoryRepository(db *mongo.Database, m *metrics.Metrics) *InventoryRepository {
	repo := &InventoryRepository{
		collection: db.Collection("inventory"),
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *InventoryRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "itemType", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "availableQuantity", Value: 1}}},
		{Keys: bson.D{{Key: "deletedAt", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *InventoryRepository) Insert(ctx context.Context, inventory *domain.Inventory) error {
	_, err := r.collection.InsertOne(ctx, inventory)
	if mongo.IsDuplicateKeyError(err) {
		return &domain.DuplicateError{
			Entity: "inventory",
			Key:    inventory.ItemType + "/" + inventory.ItemID,
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert inventory: %w", err)
	}
	inventory.BaseVersion = inventory.Version
	return nil
}

func (r *InventoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Inventory, error) {
	var inventory domain.Inventory
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&inventory)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory: %w", err)
	}
	inventory.BaseVersion = inventory.Version
	return &inventory, nil
}

func (r *InventoryRepository) FindByItem(ctx context.Context, itemType, itemID string) (*domain.Inventory, error) {
	var inventory domain.Inventory
	err := r.collection.FindOne(ctx, bson.M{"itemType": itemType, "itemId": itemID}).Decode(&inventory)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory: %w", err)
	}
	inventory.BaseVersion = inventory.Version
	return &inventory, nil
}

// UpdateVersioned replaces the document only when the stored version still
// matches the version the aggregate was loaded at. An operation may apply
// several mutations to the same aggregate before persisting; the number of
// bumps since load does not matter, only that nobody else wrote in between.
func (r *InventoryRepository) UpdateVersioned(ctx context.Context, inventory *domain.Inventory) error {
	filter := bson.M{
		"_id":     inventory.ID,
		"version": inventory.BaseVersion,
	}

	result, err := r.collection.ReplaceOne(ctx, filter, inventory)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}

	if result.MatchedCount == 0 {
		if r.metrics != nil {
			r.metrics.RecordOptimisticLockConflict()
		}
		return &domain.OptimisticLockError{
			Entity:  "inventory",
			ID:      inventory.ID.Hex(),
			Version: inventory.BaseVersion,
		}
	}
	inventory.BaseVersion = inventory.Version
	return nil
}

func (r *InventoryRepository) FindLowStock(ctx context.Context, threshold int, limit int) ([]*domain.Inventory, error) {
	filter := bson.M{
		"availableQuantity": bson.M{"$lte": threshold},
		"deletedAt":         nil,
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "availableQuantity", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find low stock: %w", err)
	}
	defer cursor.Close(ctx)

	var inventories []*domain.Inventory
	if err := cursor.All(ctx, &inventories); err != nil {
		return nil, err
	}
	for _, inv := range inventories {
		inv.BaseVersion = inv.Version
	}
	return inventories, nil
}

func (r *InventoryRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Inventory, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: "itemType", Value: 1}, {Key: "itemId", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"deletedAt": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventories: %w", err)
	}
	defer cursor.Close(ctx)

	var inventories []*domain.Inventory
	if err := cursor.All(ctx, &inventories); err != nil {
		return nil, err
	}
	for _, inv := range inventories {
		inv.BaseVersion = inv.Version
	}
	return inventories, nil
}
