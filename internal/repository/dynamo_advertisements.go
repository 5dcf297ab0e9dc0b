package repository

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/intake/internal/models"
)

type dynamoAdvertisementRepository struct {
	*dynamoTable
}

func advertisementPK(id string) string {
	return "AD#" + id
}

func (r *dynamoAdvertisementRepository) List(ctx context.Context, f models.AdvertisementFilter) ([]models.Advertisement, error) {
	q := scanQuery{entity: entityAdvertisement, names: map[string]string{}, values: map[string]types.AttributeValue{}}
	var conds []string
	if f.Position != "" {
		conds = append(conds, "#position = :position")
		q.names["#position"] = "position"
		q.values[":position"] = &types.AttributeValueMemberS{Value: string(f.Position)}
	}
	if f.ActiveOnly {
		conds = append(conds, "is_active = :active")
		q.values[":active"] = &types.AttributeValueMemberBOOL{Value: true}
	}
	q.filter = strings.Join(conds, " AND ")

	ads := []models.Advertisement{}
	err := r.scan(ctx, q, func(item map[string]types.AttributeValue) error {
		var ad models.Advertisement
		if err := attributevalue.UnmarshalMap(item, &ad); err != nil {
			return err
		}
		ads = append(ads, ad)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortAdvertisements(ads)
	if f.Limit > 0 && len(ads) > f.Limit {
		ads = ads[:f.Limit]
	}
	return ads, nil
}

func (r *dynamoAdvertisementRepository) GetByID(ctx context.Context, id string) (*models.Advertisement, error) {
	var ad models.Advertisement
	if err := r.get(ctx, advertisementPK(id), &ad); err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *dynamoAdvertisementRepository) Create(ctx context.Context, ad *models.Advertisement) error {
	item, err := r.marshal(advertisementPK(ad.ID), entityAdvertisement, ad)
	if err != nil {
		return err
	}
	return r.put(ctx, item, true)
}

func (r *dynamoAdvertisementRepository) Update(ctx context.Context, id string, patch models.AdvertisementPatch, updatedBy string, at time.Time) (*models.Advertisement, error) {
	sets := []string{"updated_by = :updated_by", "updated_at = :updated_at"}
	names := map[string]string{}
	values := map[string]types.AttributeValue{
		":updated_by": &types.AttributeValueMemberS{Value: updatedBy},
		":updated_at": timeValue(at),
	}
	if patch.Position != nil {
		sets = append(sets, "#position = :position")
		names["#position"] = "position"
		values[":position"] = &types.AttributeValueMemberS{Value: string(*patch.Position)}
	}
	if patch.Title != nil {
		sets = append(sets, "#title = :title")
		names["#title"] = "title"
		values[":title"] = &types.AttributeValueMemberS{Value: *patch.Title}
	}
	if patch.Content != nil {
		sets = append(sets, "#content = :content")
		names["#content"] = "content"
		values[":content"] = &types.AttributeValueMemberS{Value: *patch.Content}
	}
	if patch.LinkURL != nil {
		sets = append(sets, "link_url = :link_url")
		values[":link_url"] = &types.AttributeValueMemberS{Value: *patch.LinkURL}
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = :is_active")
		values[":is_active"] = &types.AttributeValueMemberBOOL{Value: *patch.IsActive}
	}

	var ad models.Advertisement
	if err := r.update(ctx, advertisementPK(id), "SET "+strings.Join(sets, ", "), names, values, &ad); err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *dynamoAdvertisementRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, advertisementPK(id), true)
}
