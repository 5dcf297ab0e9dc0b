package repository

import (
	"context"
	"testing"

	"github.com/qcom/intake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func firstDoc(mt *mtest.T, evt *event.CommandStartedEvent, key string) bson.Raw {
	mt.Helper()
	vals, err := evt.Command.Lookup(key).Array().Values()
	require.NoError(mt, err)
	require.NotEmpty(mt, vals)
	return vals[0].Document()
}

func TestMongoUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get or create only sets fields on insert", func(mt *mtest.T) {
		repo := &mongoUserRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "a@example.com"},
			{Key: "name", Value: "Ann"},
		}}))

		user, err := repo.GetOrCreate(context.Background(), &models.User{Email: "a@example.com", Name: "Other"})
		require.NoError(mt, err)
		assert.Equal(mt, "Ann", user.Name)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		assert.Equal(mt, "a@example.com", evt.Command.Lookup("query", "_id").StringValue())
		assert.True(mt, evt.Command.Lookup("upsert").Boolean())
		assert.True(mt, evt.Command.Lookup("new").Boolean())

		update := evt.Command.Lookup("update").Document()
		insert, ok := update.Lookup("$setOnInsert").DocumentOK()
		require.True(mt, ok)
		assert.Equal(mt, "Other", insert.Lookup("name").StringValue())
		_, err = update.LookupErr("$set")
		assert.Error(mt, err)
	})

	mt.Run("mark verified on missing user", func(mt *mtest.T) {
		repo := &mongoUserRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.MarkVerified(context.Background(), "missing@example.com", baseTime)
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoSubmissions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := &mongoSubmissionRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Create(context.Background(), &models.Submission{ID: "s1"})
		assert.ErrorIs(mt, err, ErrAlreadyExists)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := &mongoSubmissionRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "nope")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list pages newest first", func(mt *mtest.T) {
		repo := &mongoSubmissionRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int64(3)}}),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "s0"},
				{Key: "status", Value: "received"},
				{Key: "service", Value: "seo"},
			}),
		)

		items, total, err := repo.List(context.Background(), models.SubmissionFilter{
			Status: models.StatusReceived,
			Page:   2,
			Limit:  2,
		})
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), total)
		require.Len(mt, items, 1)
		assert.Equal(mt, "s0", items[0].ID)

		count := mt.GetStartedEvent()
		require.NotNil(mt, count)
		assert.Equal(mt, "aggregate", count.CommandName)
		match := firstDoc(mt, count, "pipeline")
		assert.Equal(mt, "received", match.Lookup("$match", "status").StringValue())

		find := mt.GetStartedEvent()
		require.NotNil(mt, find)
		assert.Equal(mt, "find", find.CommandName)
		assert.Equal(mt, "received", find.Command.Lookup("filter", "status").StringValue())
		assert.Equal(mt, int64(2), find.Command.Lookup("skip").AsInt64())
		assert.Equal(mt, int64(2), find.Command.Lookup("limit").AsInt64())
		assert.Equal(mt, int64(-1), find.Command.Lookup("sort", "submitted_at").AsInt64())
	})

	mt.Run("update status sets status and timestamp", func(mt *mtest.T) {
		repo := &mongoSubmissionRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "s1"},
			{Key: "status", Value: "completed"},
		}}))

		sub, err := repo.UpdateStatus(context.Background(), "s1", models.StatusCompleted, baseTime)
		require.NoError(mt, err)
		assert.Equal(mt, models.StatusCompleted, sub.Status)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		set := evt.Command.Lookup("update", "$set").Document()
		assert.Equal(mt, "completed", set.Lookup("status").StringValue())
		assert.Equal(mt, baseTime.UnixMilli(), set.Lookup("updated_at").Time().UnixMilli())
		assert.True(mt, evt.Command.Lookup("new").Boolean())
		_, err = evt.Command.LookupErr("upsert")
		assert.Error(mt, err)
	})

	mt.Run("stats groups by status and service", func(mt *mtest.T) {
		repo := &mongoSubmissionRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "received"}, {Key: "count", Value: int64(2)}},
				bson.D{{Key: "_id", Value: "completed"}, {Key: "count", Value: int64(1)}},
			),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "seo"}, {Key: "count", Value: int64(3)}},
			),
		)

		stats, err := repo.Stats(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), stats.Total)
		assert.Equal(mt, int64(2), stats.ByStatus["received"])
		assert.Equal(mt, int64(0), stats.ByStatus["cancelled"])
		assert.Equal(mt, int64(3), stats.ByService["seo"])

		for _, field := range []string{"$status", "$service"} {
			evt := mt.GetStartedEvent()
			require.NotNil(mt, evt)
			assert.Equal(mt, "aggregate", evt.CommandName)
			group := firstDoc(mt, evt, "pipeline").Lookup("$group").Document()
			assert.Equal(mt, field, group.Lookup("_id").StringValue())
			assert.Equal(mt, int64(1), group.Lookup("count", "$sum").AsInt64())
		}
	})
}

func TestMongoOTPs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("store replaces with upsert", func(mt *mtest.T) {
		repo := &mongoOTPRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := repo.Store(context.Background(), models.OTPData{Email: "a@example.com", CodeHash: "h2", ExpiresAt: baseTime})
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		stmt := firstDoc(mt, evt, "updates")
		assert.Equal(mt, "a@example.com", stmt.Lookup("q", "_id").StringValue())
		assert.True(mt, stmt.Lookup("upsert").Boolean())
		assert.Equal(mt, "h2", stmt.Lookup("u", "code_hash").StringValue())
		assert.Equal(mt, int64(0), stmt.Lookup("u", "attempts").AsInt64())
	})

	mt.Run("delete expired filters on expiry", func(mt *mtest.T) {
		repo := &mongoOTPRepository{col: mt.Coll, logger: testLogger()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}))

		n, err := repo.DeleteExpired(context.Background(), baseTime)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "delete", evt.CommandName)
		stmt := firstDoc(mt, evt, "deletes")
		assert.Equal(mt, baseTime.UnixMilli(), stmt.Lookup("q", "expires_at", "$lte").Time().UnixMilli())
		assert.Equal(mt, int64(0), stmt.Lookup("limit").AsInt64())
	})
}

func TestMongoStore_EnsuresIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("indexes", func(mt *mtest.T) {
		for i := 0; i < 4; i++ {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}

		store, err := NewMongoStore(context.Background(), mt.Client, mt.DB.Name(), testLogger())
		require.NoError(mt, err)
		assert.Equal(mt, "mongo", store.Driver)

		indexes := map[string]bson.Raw{}
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "createIndexes" {
				continue
			}
			indexes[evt.Command.Lookup("createIndexes").StringValue()] = evt.Command
		}
		require.Len(mt, indexes, 4)

		otp := firstDoc(mt, &event.CommandStartedEvent{Command: indexes[otpsCollection]}, "indexes")
		assert.Equal(mt, int64(1), otp.Lookup("key", "expires_at").AsInt64())
		assert.Equal(mt, int64(0), otp.Lookup("expireAfterSeconds").AsInt64())

		admin := firstDoc(mt, &event.CommandStartedEvent{Command: indexes[adminsCollection]}, "indexes")
		assert.True(mt, admin.Lookup("unique").Boolean())

		subs, err := indexes[submissionsCollection].Lookup("indexes").Array().Values()
		require.NoError(mt, err)
		assert.Len(mt, subs, 4)
	})

	mt.Run("index failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		_, err := NewMongoStore(context.Background(), mt.Client, mt.DB.Name(), testLogger())
		assert.Error(mt, err)
	})
}
