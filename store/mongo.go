package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"
	paymentsCollection = "payments"
	auditCollection    = "audit_logs"

	opTimeout = 5 * time.Second
)

// Connect dials MongoDB with the decimal-aware registry and verifies the connection
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// Mongo bundles the repositories backed by one database
type Mongo struct {
	Products *MongoProducts
	Orders   *MongoOrders
	Users    *MongoUsers
	Payments *MongoPayments
	Audit    *MongoAudit
}

// NewMongo wires every repository to db
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		Products: &MongoProducts{collection: db.Collection(productsCollection)},
		Orders:   &MongoOrders{collection: db.Collection(ordersCollection)},
		Users:    &MongoUsers{collection: db.Collection(usersCollection)},
		Payments: &MongoPayments{collection: db.Collection(paymentsCollection)},
		Audit:    &MongoAudit{collection: db.Collection(auditCollection)},
	}
}

// EnsureIndexes creates the indexes the queries rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "available", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "payment_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		auditCollection: {
			{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func objectID(v interface{}) primitive.ObjectID {
	oid, _ := v.(primitive.ObjectID)
	return oid
}

var (
	_ ProductRepository = (*MongoProducts)(nil)
	_ OrderRepository   = (*MongoOrders)(nil)
	_ UserRepository    = (*MongoUsers)(nil)
	_ PaymentRepository = (*MongoPayments)(nil)
	_ AuditLog          = (*MongoAudit)(nil)
)
