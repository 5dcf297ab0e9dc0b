package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/intake/internal/models"
)

type dynamoAdminRepository struct {
	*dynamoTable
}

func adminPK(email string) string {
	return "ADMIN#" + email
}

func (r *dynamoAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := r.get(ctx, adminPK(email), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *dynamoAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	item, err := r.marshal(adminPK(admin.Email), entityAdmin, admin)
	if err != nil {
		return err
	}
	return r.put(ctx, item, true)
}

func (r *dynamoAdminRepository) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	return r.update(ctx, adminPK(email),
		"SET last_login_at = :at",
		nil,
		map[string]types.AttributeValue{":at": timeValue(at)},
		nil,
	)
}
