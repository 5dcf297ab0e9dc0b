package service

import (
	"context"
	"testing"
	"time"

	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubmissionFixture() (*SubmissionService, *repository.Store, *fakeNotifier, *fakeClock) {
	store := repository.NewMemoryStore()
	notifier := &fakeNotifier{}
	clock := newFakeClock()
	svc := NewSubmissionService(store.Users, store.Submissions, notifier, quietLogger())
	svc.nowF = clock.Now
	return svc, store, notifier, clock
}

func TestSubmissionService_SubmitDefaultsToReceived(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier, clock := newSubmissionFixture()

	sub, err := svc.Submit(ctx, SubmissionInput{
		Name:        "A",
		Email:       " A@B.com",
		Service:     "web-development",
		Description: "x",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, models.StatusReceived, sub.Status)
	assert.Equal(t, "a@b.com", sub.Email)
	assert.Equal(t, clock.Now(), sub.SubmittedAt)

	stored, err := store.Submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Name)
	assert.Equal(t, "a@b.com", stored.Email)
	assert.Equal(t, "web-development", stored.Service)
	assert.Equal(t, "x", stored.Description)
	assert.Equal(t, models.StatusReceived, stored.Status)

	user, err := store.Users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "A", user.Name)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, sub.ID, notifier.got[0].ID)
}

func TestSubmissionService_SubmitKeepsExistingUser(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newSubmissionFixture()

	_, err := store.Users.GetOrCreate(ctx, &models.User{Email: "a@b.com", Name: "Original"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmissionInput{Name: "New", Email: "a@b.com", Service: "seo", Description: "x"})
	require.NoError(t, err)

	user, err := store.Users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Original", user.Name)
}

func TestSubmissionService_ListClampsPaging(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newSubmissionFixture()

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, SubmissionInput{Name: "A", Email: "a@b.com", Service: "seo", Description: "x"})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	page, err := svc.List(ctx, models.SubmissionFilter{Page: 0, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.TotalPages)

	page, err = svc.List(ctx, models.SubmissionFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)

	_, err = svc.List(ctx, models.SubmissionFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSubmissionService_ListHugePageIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newSubmissionFixture()

	_, err := svc.Submit(ctx, SubmissionInput{Name: "A", Email: "a@b.com", Service: "seo", Description: "x"})
	require.NoError(t, err)

	page, err := svc.List(ctx, models.SubmissionFilter{Page: 461168601842738792, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, MaxPage, page.Page)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(1), page.Total)
}

func TestSubmissionService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newSubmissionFixture()

	sub, err := svc.Submit(ctx, SubmissionInput{Name: "A", Email: "a@b.com", Service: "seo", Description: "x"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	updated, err := svc.UpdateStatus(ctx, sub.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)

	// Any status may follow any other.
	updated, err = svc.UpdateStatus(ctx, sub.ID, models.StatusReceived)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceived, updated.Status)

	_, err = svc.UpdateStatus(ctx, sub.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, "missing", models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardService(t *testing.T) {
	ctx := context.Background()
	svc, store, _, clock := newSubmissionFixture()
	dash := NewDashboardService(store.Users, store.Submissions, store.Advertisements)

	for i := 0; i < 7; i++ {
		_, err := svc.Submit(ctx, SubmissionInput{Name: "A", Email: "a@b.com", Service: "seo", Description: "x"})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	require.NoError(t, store.Users.MarkVerified(ctx, "a@b.com", clock.Now()))
	require.NoError(t, store.Advertisements.Create(ctx, &models.Advertisement{ID: "ad1", Position: models.PositionFooter, IsActive: true}))
	require.NoError(t, store.Advertisements.Create(ctx, &models.Advertisement{ID: "ad2", Position: models.PositionFooter}))

	d, err := dash.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Submissions.Total)
	assert.Equal(t, int64(7), d.Submissions.ByStatus["received"])
	assert.Equal(t, int64(0), d.Submissions.ByStatus["completed"])
	assert.Equal(t, UserCounts{Total: 1, Verified: 1}, d.Users)
	assert.Equal(t, 1, d.ActiveAdvertisements)
	assert.Len(t, d.Recent, 5)
}
