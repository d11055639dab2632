package store

import (
	"context"
	"testing"
	"time"

	"masivo-tech/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().
		ClientType(mtest.Mock).
		ClientOptions(options.Client().SetRegistry(NewRegistry())))
}

func productDoc(id primitive.ObjectID, name string, price string, stock int) bson.D {
	d128, _ := primitive.ParseDecimal128(price)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "description", Value: "gaming"},
		{Key: "price", Value: d128},
		{Key: "category", Value: "teclados"},
		{Key: "stock", Value: stock},
		{Key: "available", Value: true},
		{Key: "created_at", Value: time.Now()},
	}
}

func TestMongoProducts(t *testing.T) {
	mt := newMockT(t)

	mt.Run("list applies filters and decodes decimals", func(mt *mtest.T) {
		repo := &MongoProducts{collection: mt.Coll}
		id := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			productDoc(id, "Redragon Kumara K552", "25999.00", 15)))

		products, err := repo.List(context.Background(), ProductFilter{
			Category: models.CategoryKeyboards,
			Query:    "kumara",
			Sort:     SortPriceLow,
		})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, id, products[0].ID)
		assert.True(t, products[0].Price.Equal(decimal.NewFromInt(25999)))

		cmd := mt.GetStartedEvent().Command
		filter := cmd.Lookup("filter").Document()
		assert.True(t, filter.Lookup("available").Boolean())
		assert.Equal(t, "teclados", filter.Lookup("category").StringValue())
		_, err = filter.LookupErr("$or")
		assert.NoError(t, err)
		assert.Equal(t, int32(1), cmd.Lookup("sort", "price").Int32())
	})

	mt.Run("search limits results to available name or category matches", func(mt *mtest.T) {
		repo := &MongoProducts{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		products, err := repo.Search(context.Background(), "zzz", 5)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(t, int64(5), cmd.Lookup("limit").AsInt64())
		filter := cmd.Lookup("filter").Document()
		assert.True(t, filter.Lookup("available").Boolean())
		clauses, err := filter.Lookup("$or").Array().Values()
		require.NoError(t, err)
		assert.Len(t, clauses, 2)
		assert.Equal(t, int32(1), cmd.Lookup("sort", "name").Int32())
	})

	mt.Run("get with malformed id is not found", func(mt *mtest.T) {
		repo := &MongoProducts{collection: mt.Coll}
		_, err := repo.Get(context.Background(), "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("get missing product is not found", func(mt *mtest.T) {
		repo := &MongoProducts{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Get(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("decrement stock fails when nothing matched", func(mt *mtest.T) {
		repo := &MongoProducts{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.DecrementStock(context.Background(), primitive.NewObjectID().Hex(), 3)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		filter := mt.GetStartedEvent().Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("q").Document()
		assert.Equal(t, int32(3), filter.Lookup("stock", "$gte").Int32())
	})

	mt.Run("create assigns the inserted id", func(mt *mtest.T) {
		repo := &MongoProducts{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		p := &models.Product{Name: "AOC 24G2SE", Price: decimal.NewFromInt(89999), Category: models.CategoryMonitors}
		require.NoError(t, repo.Create(context.Background(), p))
		assert.False(t, p.ID.IsZero())
		assert.False(t, p.CreatedAt.IsZero())
	})
}

func TestMongoOrders(t *testing.T) {
	mt := newMockT(t)

	mt.Run("update status of missing order", func(mt *mtest.T) {
		repo := &MongoOrders{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.UpdateStatus(context.Background(), primitive.NewObjectID().Hex(), models.OrderPaid)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("transition only matches the allowed statuses", func(mt *mtest.T) {
		repo := &MongoOrders{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		from := []models.OrderStatus{models.OrderPending, models.OrderPaid}
		require.NoError(t, repo.TransitionStatus(context.Background(), primitive.NewObjectID().Hex(), from, models.OrderCancelled))

		filter := mt.GetStartedEvent().Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("q").Document()
		statuses, err := filter.Lookup("status", "$in").Array().Values()
		require.NoError(t, err)
		require.Len(t, statuses, 2)
		assert.Equal(t, "pending", statuses[0].StringValue())
		assert.Equal(t, "paid", statuses[1].StringValue())
	})

	mt.Run("transition of an order that moved on", func(mt *mtest.T) {
		repo := &MongoOrders{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		err := repo.TransitionStatus(context.Background(), primitive.NewObjectID().Hex(),
			[]models.OrderStatus{models.OrderPending}, models.OrderCancelled)
		assert.ErrorIs(t, err, ErrStatusChanged)
	})

	mt.Run("transition of a missing order", func(mt *mtest.T) {
		repo := &MongoOrders{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		err := repo.TransitionStatus(context.Background(), primitive.NewObjectID().Hex(),
			[]models.OrderStatus{models.OrderPending}, models.OrderCancelled)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("find by empty payment id", func(mt *mtest.T) {
		repo := &MongoOrders{collection: mt.Coll}
		_, err := repo.FindByPaymentID(context.Background(), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMongoUsersDuplicateEmail(t *testing.T) {
	mt := newMockT(t)

	mt.Run("duplicate key maps to ErrDuplicate", func(mt *mtest.T) {
		repo := &MongoUsers{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), &models.User{Email: " Gamer@Example.com "})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}
