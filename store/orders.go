package store

import (
	"context"
	"fmt"
	"time"

	"masivo-tech/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOrders stores orders with their items embedded
type MongoOrders struct {
	collection *mongo.Collection
}

// Create inserts the order and its items in one document
func (s *MongoOrders) Create(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.ID = primitive.NilObjectID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	result, err := s.collection.InsertOne(ctx, o)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID = objectID(result.InsertedID)
	return nil
}

// Get returns an order by id
func (s *MongoOrders) Get(ctx context.Context, id string) (*models.Order, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// FindByPaymentID returns the order linked to a processor session
func (s *MongoOrders) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	if paymentID == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (s *MongoOrders) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := s.collection.FindOne(ctx, filter).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// ListByUser returns a user's orders, newest first
func (s *MongoOrders) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the order status
func (s *MongoOrders) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return s.set(ctx, id, bson.M{"status": status})
}

// TransitionStatus moves the order to status to in a single conditional
// update
func (s *MongoOrders) TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("count order: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

// SetPaymentID links the order to a processor session
func (s *MongoOrders) SetPaymentID(ctx context.Context, id string, paymentID string) error {
	return s.set(ctx, id, bson.M{"payment_id": paymentID})
}

func (s *MongoOrders) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	fields["updated_at"] = time.Now().UTC()

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
