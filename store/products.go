package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"masivo-tech/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProducts is the MongoDB catalog store
type MongoProducts struct {
	collection *mongo.Collection
}

var productSorts = map[string]bson.D{
	SortName:      {{Key: "name", Value: 1}},
	SortPriceLow:  {{Key: "price", Value: 1}},
	SortPriceHigh: {{Key: "price", Value: -1}},
	SortNewest:    {{Key: "created_at", Value: -1}},
}

// SortOrDefault maps unknown sort keys to name ordering
func SortOrDefault(sort string) string {
	if _, ok := productSorts[sort]; ok {
		return sort
	}
	return SortName
}

func containsPattern(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}

// List returns available products matching filter
func (s *MongoProducts) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{"available": true}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Query != "" {
		query["$or"] = bson.A{
			bson.M{"name": containsPattern(filter.Query)},
			bson.M{"description": containsPattern(filter.Query)},
		}
	}

	opts := options.Find().SetSort(productSorts[SortOrDefault(filter.Sort)])
	return s.find(ctx, query, opts)
}

// Latest returns the newest available products
func (s *MongoProducts) Latest(ctx context.Context, limit int) ([]models.Product, error) {
	opts := options.Find().SetSort(productSorts[SortNewest]).SetLimit(int64(limit))
	return s.find(ctx, bson.M{"available": true}, opts)
}

// Search matches name or category, for autocomplete
func (s *MongoProducts) Search(ctx context.Context, q string, limit int) ([]models.Product, error) {
	query := bson.M{
		"available": true,
		"$or": bson.A{
			bson.M{"name": containsPattern(q)},
			bson.M{"category": containsPattern(q)},
		},
	}
	opts := options.Find().SetSort(productSorts[SortName]).SetLimit(int64(limit))
	return s.find(ctx, query, opts)
}

func (s *MongoProducts) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// Get returns a product by id regardless of availability
func (s *MongoProducts) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByName returns the product with exactly this name
func (s *MongoProducts) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	if err := s.collection.FindOne(ctx, bson.M{"name": name}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Create inserts p and assigns its id
func (s *MongoProducts) Create(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.ID = primitive.NilObjectID
	p.CreatedAt, p.UpdatedAt = now, now

	result, err := s.collection.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID = objectID(result.InsertedID)
	return nil
}

// Update replaces the editable fields of a product
func (s *MongoProducts) Update(ctx context.Context, id string, p *models.Product) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"category":    p.Category,
		"image":       p.Image,
		"stock":       p.Stock,
		"available":   p.Available,
		"updated_at":  p.UpdatedAt,
	}}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	p.ID = oid
	return nil
}

// Delete removes a product
func (s *MongoProducts) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock subtracts quantity only when enough stock remains
func (s *MongoProducts) DecrementStock(ctx context.Context, id string, quantity int) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "stock": bson.M{"$gte": quantity}}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}
