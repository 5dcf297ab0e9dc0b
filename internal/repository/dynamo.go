package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// Single-table layout: every item carries PK, SK and entity_type.
const (
	metadataSK    = "METADATA"
	entityTypeKey = "entity_type"

	entityUser          = "user"
	entitySubmission    = "submission"
	entityOTP           = "otp"
	entityAdmin         = "admin"
	entityAdvertisement = "advertisement"
)

// dynamoTable holds the client plumbing shared by every entity repository.
type dynamoTable struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoStore(client *dynamodb.Client, tableName string, logger *logrus.Logger) *Store {
	t := &dynamoTable{client: client, tableName: tableName, logger: logger}
	return &Store{
		Driver:         "dynamodb",
		Users:          &dynamoUserRepository{t},
		Submissions:    &dynamoSubmissionRepository{t},
		OTPs:           &dynamoOTPRepository{t},
		Admins:         &dynamoAdminRepository{t},
		Advertisements: &dynamoAdvertisementRepository{t},
		ping: func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
			return err
		},
	}
}

func itemKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

func (t *dynamoTable) marshal(pk, entity string, v interface{}) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", entity, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: metadataSK}
	item[entityTypeKey] = &types.AttributeValueMemberS{Value: entity}
	return item, nil
}

// put writes item. With mustNotExist the write fails with ErrAlreadyExists
// when an item already holds the key.
func (t *dynamoTable) put(ctx context.Context, item map[string]types.AttributeValue, mustNotExist bool) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      item,
	}
	if mustNotExist {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return ErrAlreadyExists
		}
		t.logger.WithError(err).Error("Failed to put item in DynamoDB")
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// get loads the item at pk into out, returning ErrNotFound when absent.
func (t *dynamoTable) get(ctx context.Context, pk string, out interface{}) error {
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key:       itemKey(pk),
	})
	if err != nil {
		t.logger.WithError(err).Error("Failed to get item from DynamoDB")
		return fmt.Errorf("failed to get item: %w", err)
	}
	if result.Item == nil {
		return ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return nil
}

// update applies expr to an existing item and unmarshals the new image into
// out when out is non-nil.
func (t *dynamoTable) update(ctx context.Context, pk, expr string, names map[string]string, values map[string]types.AttributeValue, out interface{}) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.tableName),
		Key:                       itemKey(pk),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	result, err := t.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailed(err) {
			return ErrNotFound
		}
		t.logger.WithError(err).Error("Failed to update item in DynamoDB")
		return fmt.Errorf("failed to update item: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(result.Attributes, out); err != nil {
		return fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return nil
}

func (t *dynamoTable) delete(ctx context.Context, pk string, mustExist bool) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(t.tableName),
		Key:       itemKey(pk),
	}
	if mustExist {
		input.ConditionExpression = aws.String("attribute_exists(PK)")
	}

	if _, err := t.client.DeleteItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

type scanQuery struct {
	entity     string
	filter     string
	names      map[string]string
	values     map[string]types.AttributeValue
	projection string
}

// scan pages through every item of one entity type matching q.
func (t *dynamoTable) scan(ctx context.Context, q scanQuery, fn func(item map[string]types.AttributeValue) error) error {
	filter := entityTypeKey + " = :entity"
	if q.filter != "" {
		filter += " AND " + q.filter
	}
	values := map[string]types.AttributeValue{
		":entity": &types.AttributeValueMemberS{Value: q.entity},
	}
	for k, v := range q.values {
		values[k] = v
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(t.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
	}
	if len(q.names) > 0 {
		input.ExpressionAttributeNames = q.names
	}
	if q.projection != "" {
		input.ProjectionExpression = aws.String(q.projection)
	}

	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			t.logger.WithError(err).WithField("entity", q.entity).Error("Failed to scan DynamoDB table")
			return fmt.Errorf("failed to scan %s items: %w", q.entity, err)
		}
		for _, item := range page.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *dynamoTable) count(ctx context.Context, q scanQuery) (int64, error) {
	var n int64
	err := t.scan(ctx, q, func(map[string]types.AttributeValue) error {
		n++
		return nil
	})
	return n, err
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// timeValue encodes t the way attributevalue.MarshalMap does.
func timeValue(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.Format(time.RFC3339Nano)}
}
