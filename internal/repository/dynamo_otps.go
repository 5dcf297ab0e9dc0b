package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/intake/internal/models"
)

type dynamoOTPRepository struct {
	*dynamoTable
}

func otpPK(email string) string {
	return "OTP#" + email
}

// ttlSeconds rounds up so DynamoDB never expires a code before ExpiresAt.
func ttlSeconds(t time.Time) int64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return s
}

// Store writes the code with a TTL attribute so DynamoDB expires it.
func (r *dynamoOTPRepository) Store(ctx context.Context, otp models.OTPData) error {
	item, err := r.marshal(otpPK(otp.Email), entityOTP, otp)
	if err != nil {
		return err
	}
	item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlSeconds(otp.ExpiresAt), 10)}
	return r.put(ctx, item, false)
}

func (r *dynamoOTPRepository) Get(ctx context.Context, email string) (*models.OTPData, error) {
	var otp models.OTPData
	if err := r.get(ctx, otpPK(email), &otp); err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *dynamoOTPRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	var otp models.OTPData
	err := r.update(ctx, otpPK(email),
		"ADD attempts :one",
		nil,
		map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		&otp,
	)
	if err != nil {
		return 0, err
	}
	return otp.Attempts, nil
}

func (r *dynamoOTPRepository) Delete(ctx context.Context, email string) error {
	return r.delete(ctx, otpPK(email), false)
}

// DeleteExpired removes codes DynamoDB has not yet reaped; TTL deletion can
// lag by hours.
func (r *dynamoOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var keys []string
	q := scanQuery{
		entity:     entityOTP,
		filter:     "#ttl <= :now",
		names:      map[string]string{"#ttl": "TTL"},
		values:     map[string]types.AttributeValue{":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)}},
		projection: "PK",
	}
	err := r.scan(ctx, q, func(item map[string]types.AttributeValue) error {
		if pk, ok := item["PK"].(*types.AttributeValueMemberS); ok {
			keys = append(keys, pk.Value)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, pk := range keys {
		if err := r.delete(ctx, pk, false); err != nil {
			return deleted, fmt.Errorf("failed to delete expired OTP: %w", err)
		}
		deleted++
	}
	return deleted, nil
}
