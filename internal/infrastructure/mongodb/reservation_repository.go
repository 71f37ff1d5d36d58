package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/inventory-service/internal/domain"
)

// ReservationRepository persists reservations. Reservations are written and
// resolved inside the same transactions that mutate their inventory, so no
// versioning is needed here; the aggregate's CAS covers them.
type ReservationRepository struct {
	collection *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	repo := &ReservationRepository{
		collection: db.Collection("reservations"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ReservationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reservationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// Consolidation lookup
		{Keys: bson.D{{Key: "operationId", Value: 1}, {Key: "state", Value: 1}}},
		// Sweeper scan
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "expiresAt", Value: 1}}},
		{Keys: bson.D{{Key: "inventoryId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *ReservationRepository) Insert(ctx context.Context, reservation *domain.Reservation) error {
	_, err := r.collection.InsertOne(ctx, reservation)
	if mongo.IsDuplicateKeyError(err) {
		return &domain.DuplicateError{Entity: "reservation", Key: reservation.ReservationID}
	}
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) FindByReservationID(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := r.collection.FindOne(ctx, bson.M{"reservationId": reservationID}).Decode(&reservation)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *ReservationRepository) FindActiveByOperation(ctx context.Context, operationID string) ([]*domain.Reservation, error) {
	filter := bson.M{
		"operationId": operationID,
		"state":       domain.ReservationStateActive,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*domain.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *ReservationRepository) FindExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Reservation, error) {
	filter := bson.M{
		"state":     domain.ReservationStateActive,
		"expiresAt": bson.M{"$lt": asOf},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "expiresAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*domain.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *ReservationRepository) FindByInventory(ctx context.Context, inventoryID primitive.ObjectID) ([]*domain.Reservation, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"inventoryId": inventoryID})
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*domain.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *ReservationRepository) CountActiveByInventory(ctx context.Context, inventoryID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"inventoryId": inventoryID,
		"state":       domain.ReservationStateActive,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *ReservationRepository) Update(ctx context.Context, reservation *domain.Reservation) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"reservationId": reservation.ReservationID}, reservation)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return &domain.NotFoundError{Entity: "reservation", ID: reservation.ReservationID}
	}
	return nil
}
