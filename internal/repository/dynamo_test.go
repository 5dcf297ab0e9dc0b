package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/qcom/intake/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conditionFailedBody = `{"__type":"com.amazonaws.dynamodb.v20120810#ConditionalCheckFailedException","message":"The conditional request failed"}`

// dynamoRequest is the subset of an awsJson1_0 DynamoDB request the
// repositories send.
type dynamoRequest struct {
	Op                        string
	TableName                 string
	Item                      map[string]map[string]any
	Key                       map[string]map[string]any
	ConditionExpression       string
	UpdateExpression          string
	FilterExpression          string
	ProjectionExpression      string
	ReturnValues              string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]map[string]any
}

// fakeDynamo records every request and answers with reply.
type fakeDynamo struct {
	mu    sync.Mutex
	calls []dynamoRequest
	reply func(req dynamoRequest) (int, string)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFakeDynamo(t *testing.T, reply func(req dynamoRequest) (int, string)) (*Store, *fakeDynamo) {
	t.Helper()
	f := &fakeDynamo{reply: reply}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dynamoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Op = strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810.")

		f.mu.Lock()
		f.calls = append(f.calls, req)
		f.mu.Unlock()

		status, body := http.StatusOK, "{}"
		if f.reply != nil {
			status, body = f.reply(req)
		}
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client := dynamodb.New(dynamodb.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		}),
		RetryMaxAttempts: 1,
	})
	return NewDynamoStore(client, "IntakeTable", testLogger()), f
}

func (f *fakeDynamo) requests() []dynamoRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dynamoRequest(nil), f.calls...)
}

func (f *fakeDynamo) ops() []string {
	var ops []string
	for _, c := range f.requests() {
		ops = append(ops, c.Op)
	}
	return ops
}

func submissionItem(id, status, service string, at time.Time) string {
	return `{"PK":{"S":"SUBMISSION#` + id + `"},"SK":{"S":"METADATA"},"entity_type":{"S":"submission"},` +
		`"id":{"S":"` + id + `"},"status":{"S":"` + status + `"},"service":{"S":"` + service + `"},` +
		`"submitted_at":{"S":"` + at.Format(time.RFC3339Nano) + `"}}`
}

func TestDynamoUsers_GetOrCreateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		switch req.Op {
		case "PutItem":
			return http.StatusBadRequest, conditionFailedBody
		case "GetItem":
			return http.StatusOK, `{"Item":{"PK":{"S":"USER#a@example.com"},"email":{"S":"a@example.com"},"name":{"S":"Ann"}}}`
		}
		return http.StatusOK, "{}"
	})

	user, err := store.Users.GetOrCreate(ctx, &models.User{Email: "a@example.com", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)

	assert.Equal(t, []string{"PutItem", "GetItem"}, fake.ops())
	put := fake.requests()[0]
	assert.Equal(t, "IntakeTable", put.TableName)
	assert.Equal(t, "attribute_not_exists(PK)", put.ConditionExpression)
	assert.Equal(t, "USER#a@example.com", put.Item["PK"]["S"])
	assert.Equal(t, "METADATA", put.Item["SK"]["S"])
	assert.Equal(t, "user", put.Item["entity_type"]["S"])

	get := fake.requests()[1]
	assert.Equal(t, "USER#a@example.com", get.Key["PK"]["S"])
}

func TestDynamoUsers_GetOrCreateInsertsNew(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeDynamo(t, nil)

	user, err := store.Users.GetOrCreate(ctx, &models.User{Email: "new@example.com", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", user.Name)
	assert.Equal(t, []string{"PutItem"}, fake.ops())
}

func TestDynamoUsers_MarkVerifiedMissing(t *testing.T) {
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusBadRequest, conditionFailedBody
	})

	err := store.Users.MarkVerified(context.Background(), "missing@example.com", baseTime)
	assert.ErrorIs(t, err, ErrNotFound)

	req := fake.requests()[0]
	assert.Equal(t, "UpdateItem", req.Op)
	assert.Equal(t, "SET verified_at = :at, updated_at = :at", req.UpdateExpression)
	assert.Equal(t, "attribute_exists(PK)", req.ConditionExpression)
	assert.Equal(t, baseTime.Format(time.RFC3339Nano), req.ExpressionAttributeValues[":at"]["S"])
}

func TestDynamoSubmissions_CreateDuplicate(t *testing.T) {
	store, _ := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusBadRequest, conditionFailedBody
	})

	err := store.Submissions.Create(context.Background(), &models.Submission{ID: "s1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDynamoSubmissions_ListFiltersWithAliases(t *testing.T) {
	ctx := context.Background()
	items := []string{
		submissionItem("s0", "received", "seo", baseTime),
		submissionItem("s1", "received", "seo", baseTime.Add(2*time.Minute)),
		submissionItem("s2", "received", "seo", baseTime.Add(time.Minute)),
	}
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusOK, `{"Items":[` + strings.Join(items, ",") + `],"Count":3}`
	})

	page, total, err := store.Submissions.List(ctx, models.SubmissionFilter{
		Status:  models.StatusReceived,
		Service: "seo",
		Page:    1,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "s1", page[0].ID)
	assert.Equal(t, "s2", page[1].ID)

	scan := fake.requests()[0]
	assert.Equal(t, "Scan", scan.Op)
	assert.Equal(t, "entity_type = :entity AND #status = :status AND #service = :service", scan.FilterExpression)
	assert.Equal(t, map[string]string{"#status": "status", "#service": "service"}, scan.ExpressionAttributeNames)
	assert.Equal(t, "submission", scan.ExpressionAttributeValues[":entity"]["S"])
	assert.Equal(t, "received", scan.ExpressionAttributeValues[":status"]["S"])
	assert.Equal(t, "seo", scan.ExpressionAttributeValues[":service"]["S"])

	page, total, err = store.Submissions.List(ctx, models.SubmissionFilter{Page: 461168601842738792, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, page)
	assert.Equal(t, "entity_type = :entity", fake.requests()[1].FilterExpression)
	assert.Empty(t, fake.requests()[1].ExpressionAttributeNames)
}

func TestDynamoSubmissions_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		if req.Key["PK"]["S"] == "SUBMISSION#missing" {
			return http.StatusBadRequest, conditionFailedBody
		}
		return http.StatusOK, `{"Attributes":` + submissionItem("s1", "completed", "seo", baseTime) + `}`
	})

	sub, err := store.Submissions.UpdateStatus(ctx, "s1", models.StatusCompleted, baseTime)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, sub.Status)

	req := fake.requests()[0]
	assert.Equal(t, "UpdateItem", req.Op)
	assert.Equal(t, "SET #status = :status, updated_at = :at", req.UpdateExpression)
	assert.Equal(t, "attribute_exists(PK)", req.ConditionExpression)
	assert.Equal(t, "ALL_NEW", req.ReturnValues)
	assert.Equal(t, map[string]string{"#status": "status"}, req.ExpressionAttributeNames)
	assert.Equal(t, "completed", req.ExpressionAttributeValues[":status"]["S"])

	_, err = store.Submissions.UpdateStatus(ctx, "missing", models.StatusCompleted, baseTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoSubmissions_StatsProjectsAliasedFields(t *testing.T) {
	items := []string{
		submissionItem("s0", "received", "seo", baseTime),
		submissionItem("s1", "completed", "seo", baseTime),
		submissionItem("s2", "received", "branding", baseTime),
	}
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusOK, `{"Items":[` + strings.Join(items, ",") + `],"Count":3}`
	})

	stats, err := store.Submissions.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus["received"])
	assert.Equal(t, int64(1), stats.ByStatus["completed"])
	assert.Equal(t, int64(0), stats.ByStatus["cancelled"])
	assert.Equal(t, int64(2), stats.ByService["seo"])

	scan := fake.requests()[0]
	assert.Equal(t, "#status, #service", scan.ProjectionExpression)
	assert.Equal(t, map[string]string{"#status": "status", "#service": "service"}, scan.ExpressionAttributeNames)
}

func TestDynamoOTPs_StoreReplacesWithTTL(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		if req.Op == "UpdateItem" {
			return http.StatusOK, `{"Attributes":{"email":{"S":"a@example.com"},"attempts":{"N":"2"}}}`
		}
		return http.StatusOK, "{}"
	})

	expires := baseTime.Add(10*time.Minute + time.Millisecond)
	otp := models.OTPData{Email: "a@example.com", CodeHash: "h1", CreatedAt: baseTime, ExpiresAt: expires}
	require.NoError(t, store.OTPs.Store(ctx, otp))
	otp.CodeHash = "h2"
	require.NoError(t, store.OTPs.Store(ctx, otp))

	reqs := fake.requests()
	require.Len(t, reqs, 2)
	for _, put := range reqs {
		assert.Equal(t, "PutItem", put.Op)
		assert.Empty(t, put.ConditionExpression)
		assert.Equal(t, "OTP#a@example.com", put.Item["PK"]["S"])
		assert.Equal(t, strconv.FormatInt(expires.Unix()+1, 10), put.Item["TTL"]["N"])
	}
	assert.Equal(t, "h2", reqs[1].Item["code_hash"]["S"])

	n, err := store.OTPs.IncrementAttempts(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	inc := fake.requests()[2]
	assert.Equal(t, "ADD attempts :one", inc.UpdateExpression)
	assert.Equal(t, "1", inc.ExpressionAttributeValues[":one"]["N"])
	assert.Empty(t, inc.ExpressionAttributeNames)
}

func TestDynamoOTPs_DeleteExpiredAliasesTTL(t *testing.T) {
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		if req.Op == "Scan" {
			return http.StatusOK, `{"Items":[{"PK":{"S":"OTP#a@example.com"}},{"PK":{"S":"OTP#b@example.com"}}],"Count":2}`
		}
		return http.StatusOK, "{}"
	})

	n, err := store.OTPs.DeleteExpired(context.Background(), baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, []string{"Scan", "DeleteItem", "DeleteItem"}, fake.ops())
	reqs := fake.requests()
	scan := reqs[0]
	assert.Equal(t, "entity_type = :entity AND #ttl <= :now", scan.FilterExpression)
	assert.Equal(t, map[string]string{"#ttl": "TTL"}, scan.ExpressionAttributeNames)
	assert.Equal(t, strconv.FormatInt(baseTime.Unix(), 10), scan.ExpressionAttributeValues[":now"]["N"])
	assert.Equal(t, "otp", scan.ExpressionAttributeValues[":entity"]["S"])
	assert.Equal(t, "PK", scan.ProjectionExpression)
	assert.Equal(t, "OTP#a@example.com", reqs[1].Key["PK"]["S"])
	assert.Equal(t, "OTP#b@example.com", reqs[2].Key["PK"]["S"])
	assert.Empty(t, reqs[1].ConditionExpression)
}

func TestDynamoAdvertisements_UpdateAliasesReservedWords(t *testing.T) {
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusOK, `{"Attributes":{"id":{"S":"ad1"},"position":{"S":"footer"},"title":{"S":"New"}}}`
	})

	pos := models.PositionFooter
	title := "New"
	active := false
	ad, err := store.Advertisements.Update(context.Background(), "ad1",
		models.AdvertisementPatch{Position: &pos, Title: &title, IsActive: &active}, "admin-1", baseTime)
	require.NoError(t, err)
	assert.Equal(t, "New", ad.Title)

	req := fake.requests()[0]
	assert.Equal(t, "AD#ad1", req.Key["PK"]["S"])
	assert.Equal(t,
		"SET updated_by = :updated_by, updated_at = :updated_at, #position = :position, #title = :title, is_active = :is_active",
		req.UpdateExpression)
	assert.Equal(t, map[string]string{"#position": "position", "#title": "title"}, req.ExpressionAttributeNames)
	assert.Equal(t, false, req.ExpressionAttributeValues[":is_active"]["BOOL"])
	assert.Equal(t, "admin-1", req.ExpressionAttributeValues[":updated_by"]["S"])
}

func TestDynamoAdvertisements_ListActiveByPosition(t *testing.T) {
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusOK, `{"Items":[{"id":{"S":"ad1"},"position":{"S":"header"},"is_active":{"BOOL":true}}],"Count":1}`
	})

	ads, err := store.Advertisements.List(context.Background(), models.AdvertisementFilter{
		Position:   models.PositionHeader,
		ActiveOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, "ad1", ads[0].ID)

	scan := fake.requests()[0]
	assert.Equal(t, "entity_type = :entity AND #position = :position AND is_active = :active", scan.FilterExpression)
	assert.Equal(t, map[string]string{"#position": "position"}, scan.ExpressionAttributeNames)
	assert.Equal(t, true, scan.ExpressionAttributeValues[":active"]["BOOL"])
}

func TestDynamoAdvertisements_DeleteMissing(t *testing.T) {
	store, fake := newFakeDynamo(t, func(req dynamoRequest) (int, string) {
		return http.StatusBadRequest, conditionFailedBody
	})

	err := store.Advertisements.Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "attribute_exists(PK)", fake.requests()[0].ConditionExpression)
}
