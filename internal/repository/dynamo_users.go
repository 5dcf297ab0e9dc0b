package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/intake/internal/models"
)

type dynamoUserRepository struct {
	*dynamoTable
}

func (r *dynamoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{Email: email}
	var stored models.User
	if err := r.get(ctx, user.GetPK(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *dynamoUserRepository) GetOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	item, err := r.marshal(user.GetPK(), entityUser, user)
	if err != nil {
		return nil, err
	}

	err = r.put(ctx, item, true)
	if errors.Is(err, ErrAlreadyExists) {
		return r.GetByEmail(ctx, user.Email)
	}
	if err != nil {
		return nil, err
	}

	created := *user
	return &created, nil
}

func (r *dynamoUserRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	user := &models.User{Email: email}
	return r.update(ctx, user.GetPK(),
		"SET verified_at = :at, updated_at = :at",
		nil,
		map[string]types.AttributeValue{":at": timeValue(at)},
		nil,
	)
}

func (r *dynamoUserRepository) Count(ctx context.Context) (int64, int64, error) {
	total, err := r.count(ctx, scanQuery{entity: entityUser, projection: "PK"})
	if err != nil {
		return 0, 0, err
	}
	verified, err := r.count(ctx, scanQuery{
		entity:     entityUser,
		filter:     "attribute_exists(verified_at)",
		projection: "PK",
	})
	if err != nil {
		return 0, 0, err
	}
	return total, verified, nil
}
