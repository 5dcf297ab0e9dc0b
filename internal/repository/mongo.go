package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection          = "users"
	submissionsCollection    = "submissions"
	otpsCollection           = "otps"
	adminsCollection         = "admins"
	advertisementsCollection = "advertisements"
)

func ConnectMongo(ctx context.Context, uri string, logger *logrus.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("MongoDB client initialized")
	return client, nil
}

// NewMongoStore wires the repositories to db and ensures their indexes.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string, logger *logrus.Logger) (*Store, error) {
	db := client.Database(dbName)
	if err := ensureMongoIndexes(ctx, db); err != nil {
		return nil, err
	}

	return &Store{
		Driver:         "mongo",
		Users:          &mongoUserRepository{col: db.Collection(usersCollection), logger: logger},
		Submissions:    &mongoSubmissionRepository{col: db.Collection(submissionsCollection), logger: logger},
		OTPs:           &mongoOTPRepository{col: db.Collection(otpsCollection), logger: logger},
		Admins:         &mongoAdminRepository{col: db.Collection(adminsCollection), logger: logger},
		Advertisements: &mongoAdvertisementRepository{col: db.Collection(advertisementsCollection), logger: logger},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	}, nil
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		submissionsCollection: {
			{Keys: bson.D{{Key: "submitted_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: -1}}},
			{Keys: bson.D{{Key: "service", Value: 1}}},
			{Keys: bson.D{{Key: "user_email", Value: 1}}},
		},
		// Mongo drops expired codes on its own; the sweeper covers the gap
		// until its background task runs.
		otpsCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		adminsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		advertisementsCollection: {
			{Keys: bson.D{{Key: "position", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

type countRow struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func groupCount(ctx context.Context, col *mongo.Collection, field string) ([]countRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []countRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
