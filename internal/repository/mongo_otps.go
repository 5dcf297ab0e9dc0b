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

type mongoOTPRepository struct {
	col    *mongo.Collection
	logger *logrus.Logger
}

func (r *mongoOTPRepository) Store(ctx context.Context, otp models.OTPData) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": otp.Email}, otp, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP in MongoDB")
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

func (r *mongoOTPRepository) Get(ctx context.Context, email string) (*models.OTPData, error) {
	var otp models.OTPData
	err := r.col.FindOne(ctx, bson.M{"_id": email}).Decode(&otp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}
	return &otp, nil
}

func (r *mongoOTPRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var otp models.OTPData
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": email}, bson.M{"$inc": bson.M{"attempts": 1}}, opts).Decode(&otp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}
	return otp.Attempts, nil
}

func (r *mongoOTPRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": email}); err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}
	return nil
}

func (r *mongoOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired OTPs: %w", err)
	}
	return res.DeletedCount, nil
}
