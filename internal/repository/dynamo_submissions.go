package repository

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/intake/internal/models"
)

type dynamoSubmissionRepository struct {
	*dynamoTable
}

func submissionPK(id string) string {
	return "SUBMISSION#" + id
}

func (r *dynamoSubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	item, err := r.marshal(submissionPK(s.ID), entitySubmission, s)
	if err != nil {
		return err
	}
	return r.put(ctx, item, true)
}

func (r *dynamoSubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var s models.Submission
	if err := r.get(ctx, submissionPK(id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// List scans the matching submissions and pages them in memory; the table
// has no index ordered by submission time.
func (r *dynamoSubmissionRepository) List(ctx context.Context, f models.SubmissionFilter) ([]models.Submission, int64, error) {
	q := scanQuery{entity: entitySubmission, names: map[string]string{}, values: map[string]types.AttributeValue{}}
	var conds []string
	if f.Status != "" {
		conds = append(conds, "#status = :status")
		q.names["#status"] = "status"
		q.values[":status"] = &types.AttributeValueMemberS{Value: string(f.Status)}
	}
	if f.Service != "" {
		conds = append(conds, "#service = :service")
		q.names["#service"] = "service"
		q.values[":service"] = &types.AttributeValueMemberS{Value: f.Service}
	}
	q.filter = strings.Join(conds, " AND ")

	var items []models.Submission
	err := r.scan(ctx, q, func(item map[string]types.AttributeValue) error {
		var s models.Submission
		if err := attributevalue.UnmarshalMap(item, &s); err != nil {
			return err
		}
		items = append(items, s)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortSubmissions(items)
	return paginate(items, f), int64(len(items)), nil
}

func (r *dynamoSubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, at time.Time) (*models.Submission, error) {
	var s models.Submission
	err := r.update(ctx, submissionPK(id),
		"SET #status = :status, updated_at = :at",
		map[string]string{"#status": "status"},
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":at":     timeValue(at),
		},
		&s,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *dynamoSubmissionRepository) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	stats := newStats()
	q := scanQuery{
		entity:     entitySubmission,
		names:      map[string]string{"#status": "status", "#service": "service"},
		projection: "#status, #service",
	}
	err := r.scan(ctx, q, func(item map[string]types.AttributeValue) error {
		var row struct {
			Status  string `dynamodbav:"status"`
			Service string `dynamodbav:"service"`
		}
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return err
		}
		stats.Total++
		stats.ByStatus[row.Status]++
		stats.ByService[row.Service]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
