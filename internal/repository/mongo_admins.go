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
)

type mongoAdminRepository struct {
	col    *mongo.Collection
	logger *logrus.Logger
}

func (r *mongoAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := r.col.FindOne(ctx, bson.M{"_id": email}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get admin from MongoDB")
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

func (r *mongoAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if _, err := r.col.InsertOne(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *mongoAdminRepository) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": email}, bson.M{"$set": bson.M{"last_login_at": at}})
	if err != nil {
		return fmt.Errorf("failed to update admin last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
