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

type mongoSubmissionRepository struct {
	col    *mongo.Collection
	logger *logrus.Logger
}

func (r *mongoSubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to insert submission into MongoDB")
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *mongoSubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var s models.Submission
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &s, nil
}

func (r *mongoSubmissionRepository) List(ctx context.Context, f models.SubmissionFilter) ([]models.Submission, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Service != "" {
		filter["service"] = f.Service
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetSkip(int64(f.Offset())).SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list submissions from MongoDB")
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	items := []models.Submission{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode submissions: %w", err)
	}
	return items, total, nil
}

func (r *mongoSubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, at time.Time) (*models.Submission, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}

	var s models.Submission
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to update submission status in MongoDB")
		return nil, fmt.Errorf("failed to update submission status: %w", err)
	}
	return &s, nil
}

func (r *mongoSubmissionRepository) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	stats := newStats()

	byStatus, err := groupCount(ctx, r.col, "status")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate submissions by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Key] = row.Count
		stats.Total += row.Count
	}

	byService, err := groupCount(ctx, r.col, "service")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate submissions by service: %w", err)
	}
	for _, row := range byService {
		stats.ByService[row.Key] = row.Count
	}
	return stats, nil
}
