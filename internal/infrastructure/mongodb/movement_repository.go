package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/inventory-service/internal/domain"
)

// MovementRepository persists the append-only audit trail. There is no
// update or delete path; movements only ever get inserted.
type MovementRepository struct {
	collection *mongo.Collection
}

func NewMovementRepository(db *mongo.Database) *MovementRepository {
	repo := &MovementRepository{
		collection: db.Collection("movements"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *MovementRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "movementId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "inventoryId", Value: 1}, {Key: "occurredAt", Value: -1}}},
		{Keys: bson.D{{Key: "inventoryId", Value: 1}, {Key: "movementType", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *MovementRepository) Insert(ctx context.Context, movement *domain.Movement) error {
	_, err := r.collection.InsertOne(ctx, movement)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

func (r *MovementRepository) InsertAll(ctx context.Context, movements []*domain.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(movements))
	for _, m := range movements {
		docs = append(docs, m)
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert movements: %w", err)
	}
	return nil
}

func (r *MovementRepository) FindByInventory(ctx context.Context, inventoryID primitive.ObjectID, limit, offset int) ([]*domain.Movement, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: "occurredAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"inventoryId": inventoryID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find movements: %w", err)
	}
	defer cursor.Close(ctx)

	var movements []*domain.Movement
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *MovementRepository) CountNonInitial(ctx context.Context, inventoryID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"inventoryId":  inventoryID,
		"movementType": bson.M{"$ne": domain.MovementTypeInitialEntry},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count movements: %w", err)
	}
	return count, nil
}
