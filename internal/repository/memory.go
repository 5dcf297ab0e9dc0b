package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qcom/intake/internal/models"
)

// NewMemoryStore returns a process-local store. Data is lost on restart and
// is not shared between instances.
func NewMemoryStore() *Store {
	return &Store{
		Driver:         "memory",
		Users:          &memoryUsers{m: make(map[string]models.User)},
		Submissions:    &memorySubmissions{m: make(map[string]models.Submission)},
		OTPs:           &memoryOTPs{m: make(map[string]models.OTPData)},
		Admins:         &memoryAdmins{m: make(map[string]models.Admin)},
		Advertisements: &memoryAdvertisements{m: make(map[string]models.Advertisement)},
	}
}

type memoryUsers struct {
	mu sync.RWMutex
	m  map[string]models.User
}

func (r *memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.m[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) GetOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[user.Email]; ok {
		return &u, nil
	}
	r.m[user.Email] = *user
	stored := *user
	return &stored, nil
}

func (r *memoryUsers) MarkVerified(ctx context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[email]
	if !ok {
		return ErrNotFound
	}
	u.VerifiedAt = &at
	u.UpdatedAt = at
	r.m[email] = u
	return nil
}

func (r *memoryUsers) Count(ctx context.Context) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var verified int64
	for _, u := range r.m {
		if u.Verified() {
			verified++
		}
	}
	return int64(len(r.m)), verified, nil
}

type memorySubmissions struct {
	mu sync.RWMutex
	m  map[string]models.Submission
}

func (r *memorySubmissions) Create(ctx context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[s.ID]; ok {
		return ErrAlreadyExists
	}
	r.m[s.ID] = *s
	return nil
}

func (r *memorySubmissions) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memorySubmissions) List(ctx context.Context, f models.SubmissionFilter) ([]models.Submission, int64, error) {
	r.mu.RLock()
	matched := make([]models.Submission, 0, len(r.m))
	for _, s := range r.m {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Service != "" && s.Service != f.Service {
			continue
		}
		matched = append(matched, s)
	}
	r.mu.RUnlock()

	sortSubmissions(matched)
	return paginate(matched, f), int64(len(matched)), nil
}

func (r *memorySubmissions) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, at time.Time) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = at
	r.m[id] = s
	return &s, nil
}

func (r *memorySubmissions) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := newStats()
	for _, s := range r.m {
		stats.Total++
		stats.ByStatus[string(s.Status)]++
		stats.ByService[s.Service]++
	}
	return stats, nil
}

type memoryOTPs struct {
	mu sync.Mutex
	m  map[string]models.OTPData
}

func (r *memoryOTPs) Store(ctx context.Context, otp models.OTPData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[otp.Email] = otp
	return nil
}

func (r *memoryOTPs) Get(ctx context.Context, email string) (*models.OTPData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.m[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &otp, nil
}

func (r *memoryOTPs) IncrementAttempts(ctx context.Context, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.m[email]
	if !ok {
		return 0, ErrNotFound
	}
	otp.Attempts++
	r.m[email] = otp
	return otp.Attempts, nil
}

func (r *memoryOTPs) Delete(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, email)
	return nil
}

func (r *memoryOTPs) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for email, otp := range r.m {
		if otp.Expired(now) {
			delete(r.m, email)
			removed++
		}
	}
	return removed, nil
}

type memoryAdmins struct {
	mu sync.RWMutex
	m  map[string]models.Admin
}

func (r *memoryAdmins) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.m[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *memoryAdmins) Create(ctx context.Context, admin *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[admin.Email]; ok {
		return ErrAlreadyExists
	}
	r.m[admin.Email] = *admin
	return nil
}

func (r *memoryAdmins) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.m[email]
	if !ok {
		return ErrNotFound
	}
	a.LastLoginAt = &at
	r.m[email] = a
	return nil
}

type memoryAdvertisements struct {
	mu sync.RWMutex
	m  map[string]models.Advertisement
}

func (r *memoryAdvertisements) List(ctx context.Context, f models.AdvertisementFilter) ([]models.Advertisement, error) {
	r.mu.RLock()
	ads := make([]models.Advertisement, 0, len(r.m))
	for _, ad := range r.m {
		if f.Position != "" && ad.Position != f.Position {
			continue
		}
		if f.ActiveOnly && !ad.IsActive {
			continue
		}
		ads = append(ads, ad)
	}
	r.mu.RUnlock()

	sortAdvertisements(ads)
	if f.Limit > 0 && len(ads) > f.Limit {
		ads = ads[:f.Limit]
	}
	return ads, nil
}

func (r *memoryAdvertisements) GetByID(ctx context.Context, id string) (*models.Advertisement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ad, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ad, nil
}

func (r *memoryAdvertisements) Create(ctx context.Context, ad *models.Advertisement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[ad.ID]; ok {
		return ErrAlreadyExists
	}
	r.m[ad.ID] = *ad
	return nil
}

func (r *memoryAdvertisements) Update(ctx context.Context, id string, patch models.AdvertisementPatch, updatedBy string, at time.Time) (*models.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&ad)
	ad.UpdatedBy = updatedBy
	ad.UpdatedAt = at
	r.m[id] = ad
	return &ad, nil
}

func (r *memoryAdvertisements) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return ErrNotFound
	}
	delete(r.m, id)
	return nil
}

func sortSubmissions(items []models.Submission) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].SubmittedAt.After(items[j].SubmittedAt)
	})
}

func sortAdvertisements(items []models.Advertisement) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func paginate(items []models.Submission, f models.SubmissionFilter) []models.Submission {
	if f.Limit <= 0 {
		return items
	}
	start := f.Offset()
	if start < 0 || start >= len(items) {
		return []models.Submission{}
	}
	end := start + f.Limit
	if end < start || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
