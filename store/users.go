package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"masivo-tech/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUsers stores accounts
type MongoUsers struct {
	collection *mongo.Collection
}

// Create inserts a user. Emails are unique and stored lower-cased.
func (s *MongoUsers) Create(ctx context.Context, u *models.User) error {
	u.ID = primitive.NilObjectID
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	result, err := s.collection.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = objectID(result.InsertedID)
	return nil
}

// GetByID returns a user by id
func (s *MongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindByEmail returns a user by email address
func (s *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

// FindByVerificationToken returns the user awaiting this token
func (s *MongoUsers) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"verification_token": token})
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.collection.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// MarkVerified flags the email as verified and clears the token
func (s *MongoUsers) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"is_verified": true},
		"$unset": bson.M{"verification_token": ""},
	})
}

// UpdateProfile replaces the editable profile fields
func (s *MongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, profile UserProfile) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"address":    profile.Address,
	}})
}

// UpdatePassword stores a new password hash
func (s *MongoUsers) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"password": hash}})
}

// Delete removes the account
func (s *MongoUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUsers) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
