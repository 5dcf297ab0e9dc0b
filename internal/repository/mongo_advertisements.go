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

type mongoAdvertisementRepository struct {
	col    *mongo.Collection
	logger *logrus.Logger
}

func (r *mongoAdvertisementRepository) List(ctx context.Context, f models.AdvertisementFilter) ([]models.Advertisement, error) {
	filter := bson.M{}
	if f.Position != "" {
		filter["position"] = f.Position
	}
	if f.ActiveOnly {
		filter["is_active"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list advertisements from MongoDB")
		return nil, fmt.Errorf("failed to list advertisements: %w", err)
	}

	ads := []models.Advertisement{}
	if err := cur.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("failed to decode advertisements: %w", err)
	}
	return ads, nil
}

func (r *mongoAdvertisementRepository) GetByID(ctx context.Context, id string) (*models.Advertisement, error) {
	var ad models.Advertisement
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ad)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advertisement: %w", err)
	}
	return &ad, nil
}

func (r *mongoAdvertisementRepository) Create(ctx context.Context, ad *models.Advertisement) error {
	if _, err := r.col.InsertOne(ctx, ad); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to insert advertisement into MongoDB")
		return fmt.Errorf("failed to create advertisement: %w", err)
	}
	return nil
}

func (r *mongoAdvertisementRepository) Update(ctx context.Context, id string, patch models.AdvertisementPatch, updatedBy string, at time.Time) (*models.Advertisement, error) {
	set := bson.M{"updated_by": updatedBy, "updated_at": at}
	if patch.Position != nil {
		set["position"] = *patch.Position
	}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.LinkURL != nil {
		set["link_url"] = *patch.LinkURL
	}
	if patch.IsActive != nil {
		set["is_active"] = *patch.IsActive
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ad models.Advertisement
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ad)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to update advertisement in MongoDB")
		return nil, fmt.Errorf("failed to update advertisement: %w", err)
	}
	return &ad, nil
}

func (r *mongoAdvertisementRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
