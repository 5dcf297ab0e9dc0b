package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qcom/intake/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	col    *mongo.Collection
	logger *logrus.Logger
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, bson.M{"_id": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get user from MongoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *mongoUserRepository) GetOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$setOnInsert": user}

	var stored models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": user.Email}, update, opts).Decode(&stored)
	if err != nil {
		r.logger.WithError(err).Error("Failed to upsert user in MongoDB")
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return &stored, nil
}

func (r *mongoUserRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": email}, bson.M{
		"$set": bson.M{"verified_at": at, "updated_at": at},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to mark user verified in MongoDB")
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) Count(ctx context.Context) (int64, int64, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count users: %w", err)
	}
	verified, err := r.col.CountDocuments(ctx, bson.M{"verified_at": bson.M{"$exists": true}})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count verified users: %w", err)
	}
	return total, verified, nil
}
