package store

import (
	"context"
	"fmt"
	"time"

	"masivo-tech/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoPayments records hosted checkout sessions
type MongoPayments struct {
	collection *mongo.Collection
}

// Create inserts a payment record
func (s *MongoPayments) Create(ctx context.Context, p *models.Payment) error {
	now := time.Now().UTC()
	p.ID = primitive.NilObjectID
	p.CreatedAt, p.UpdatedAt = now, now

	result, err := s.collection.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	p.ID = objectID(result.InsertedID)
	return nil
}

// UpdateStatus sets the status of the payment for sessionID
func (s *MongoPayments) UpdateStatus(ctx context.Context, sessionID string, status models.PaymentStatus) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
