package controllers

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// asUser installs a request middleware that pretends the API key middleware
// already authenticated the given user.
func asUser(app *fiber.App, id uint, name string) {
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			UserID:     id,
			Username:   name,
			IsLoggedIn: true,
		})
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, id)
		return c.Next()
	})
}

// memLimitRepo is an in-memory ratelimit.Repository for handler tests.
type memLimitRepo struct {
	mu   sync.Mutex
	rows map[string]*models.RateLimit
}

func newMemLimitRepo() *memLimitRepo {
	return &memLimitRepo{rows: make(map[string]*models.RateLimit)}
}

func (m *memLimitRepo) GetCurrent(_ context.Context, key string, windowStart time.Time) (*models.RateLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok || row.WindowStart.Before(windowStart) {
		return nil, nil
	}
	copy := *row
	return &copy, nil
}

func (m *memLimitRepo) Create(_ context.Context, key string, windowStart time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[key]; ok && !row.WindowStart.Before(windowStart) {
		return false, nil
	}
	m.rows[key] = &models.RateLimit{Key: key, Count: 1, WindowStart: windowStart}
	return true, nil
}

func (m *memLimitRepo) Increment(_ context.Context, key string, windowStart time.Time, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok || !row.WindowStart.Equal(windowStart) || row.Count >= max {
		return false, nil
	}
	row.Count++
	return true, nil
}

// memReviewRepo is an in-memory repository.ReviewRepository.
type memReviewRepo struct {
	mu         sync.Mutex
	nextID     uint
	reviews    map[uint]*models.ReviewRequest
	files      map[uint][]models.ReviewFile
	comments   map[uint][]models.ReviewComment
	addFileErr error
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{
		nextID:   1,
		reviews:  make(map[uint]*models.ReviewRequest),
		files:    make(map[uint][]models.ReviewFile),
		comments: make(map[uint][]models.ReviewComment),
	}
}

func (m *memReviewRepo) Create(review *models.ReviewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.ID = m.nextID
	m.nextID++
	copy := *review
	m.reviews[review.ID] = &copy
	return nil
}

func (m *memReviewRepo) GetByID(id uint) (*models.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *row
	return &copy, nil
}

func (m *memReviewRepo) GetByIDForUser(id, userID uint) (*models.ReviewRequest, error) {
	row, err := m.GetByID(id)
	if err != nil || row.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (m *memReviewRepo) GetByShareToken(token string) (*models.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.reviews {
		if row.ShareToken == token {
			copy := *row
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReviewRepo) ListByUser(userID uint) ([]models.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewRequest
	for _, row := range m.reviews {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *memReviewRepo) UpdateStatus(id uint, status, reviewerName, reviewerEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.reviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	row.Status = status
	row.ReviewerName = reviewerName
	row.ReviewerEmail = reviewerEmail
	row.StatusChangedAt = &now
	return nil
}

func (m *memReviewRepo) AddFile(file *models.ReviewFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addFileErr != nil {
		return m.addFileErr
	}
	file.ID = m.nextID
	m.nextID++
	m.files[file.ReviewRequestID] = append(m.files[file.ReviewRequestID], *file)
	return nil
}

func (m *memReviewRepo) ListFiles(reviewRequestID uint) ([]models.ReviewFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ReviewFile(nil), m.files[reviewRequestID]...), nil
}

func (m *memReviewRepo) GetFile(reviewRequestID, fileID uint) (*models.ReviewFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files[reviewRequestID] {
		if f.ID == fileID {
			copy := f
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReviewRepo) AddComment(comment *models.ReviewComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = m.nextID
	m.nextID++
	m.comments[comment.ReviewRequestID] = append(m.comments[comment.ReviewRequestID], *comment)
	return nil
}

func (m *memReviewRepo) ListComments(reviewRequestID uint) ([]models.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ReviewComment(nil), m.comments[reviewRequestID]...), nil
}

// memBillingRepo is an in-memory billing.Repository.
type memBillingRepo struct {
	mu        sync.Mutex
	profiles  map[uint]*models.BillingProfile
	onboarded map[uint]bool
	upserts   int
}

func newMemBillingRepo() *memBillingRepo {
	return &memBillingRepo{
		profiles:  make(map[uint]*models.BillingProfile),
		onboarded: make(map[uint]bool),
	}
}

func (m *memBillingRepo) GetProfileByUserID(_ context.Context, userID uint) (*models.BillingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	copy := *p
	return &copy, nil
}

func (m *memBillingRepo) GetProfileByCustomerID(_ context.Context, customerID string) (*models.BillingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.StripeCustomerID == customerID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memBillingRepo) UpsertProfile(_ context.Context, profile *models.BillingProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *profile
	m.profiles[profile.UserID] = &copy
	m.upserts++
	return nil
}

func (m *memBillingRepo) SaveProfile(ctx context.Context, profile *models.BillingProfile) error {
	return m.UpsertProfile(ctx, profile)
}

func (m *memBillingRepo) SetOnboardingCompleted(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onboarded[userID] = true
	return nil
}

func (m *memBillingRepo) ListTrialReminderTargets(context.Context, time.Time, time.Time) ([]billing.TrialReminderTarget, error) {
	return nil, nil
}

func (m *memBillingRepo) MarkTrialReminderSent(context.Context, uint, time.Time) error {
	return nil
}

// memStore records uploaded objects in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newTestLimiter() *ratelimit.Service {
	return ratelimit.NewService(newMemLimitRepo())
}

func hourBuckets(max int) ratelimit.Buckets {
	b := ratelimit.Bucket{Window: time.Hour, Max: max}
	return ratelimit.Buckets{
		ReviewFetch:        ratelimit.Bucket{Name: "review", Window: b.Window, Max: max},
		InvoiceEmail:       ratelimit.Bucket{Name: "invoice_email", Window: b.Window, Max: max},
		ReviewRequestEmail: ratelimit.Bucket{Name: "review_email", Window: b.Window, Max: max},
		Comment:            ratelimit.Bucket{Name: "comment", Window: b.Window, Max: max},
		StatusChange:       ratelimit.Bucket{Name: "status", Window: b.Window, Max: max},
		Upload:             ratelimit.Bucket{Name: "upload", Window: b.Window, Max: max},
	}
}
