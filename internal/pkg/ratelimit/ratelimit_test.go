package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
)

type fakeRepo struct {
	rows       map[string]*models.RateLimit
	creates    int
	increments int
	failNext   error
	denyCreate bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*models.RateLimit)}
}

func (f *fakeRepo) GetCurrent(_ context.Context, key string, windowStart time.Time) (*models.RateLimit, error) {
	if f.failNext != nil {
		return nil, f.failNext
	}
	row, ok := f.rows[key]
	if !ok || row.WindowStart.Before(windowStart) {
		return nil, nil
	}
	copy := *row
	return &copy, nil
}

func (f *fakeRepo) Create(_ context.Context, key string, windowStart time.Time) (bool, error) {
	if f.failNext != nil {
		return false, f.failNext
	}
	if f.denyCreate {
		return false, nil
	}
	f.creates++
	f.rows[key] = &models.RateLimit{Key: key, Count: 1, WindowStart: windowStart}
	return true, nil
}

func (f *fakeRepo) Increment(_ context.Context, key string, windowStart time.Time, max int) (bool, error) {
	if f.failNext != nil {
		return false, f.failNext
	}
	row, ok := f.rows[key]
	if !ok || row.WindowStart.Before(windowStart) || row.Count >= max {
		return false, nil
	}
	f.increments++
	row.Count++
	return true, nil
}

func (f *fakeRepo) writes() int { return f.creates + f.increments }

func TestAllowCountsDownAndDenies(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	const max = 5
	for i := 0; i < max; i++ {
		res, err := svc.Allow(context.Background(), "upload:42", time.Hour, max)
		if err != nil {
			t.Fatalf("Allow() call %d returned error: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("Allow() call %d denied, want allowed", i+1)
		}
		if want := max - i - 1; res.Remaining != want {
			t.Fatalf("Allow() call %d remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}

	writesBefore := repo.writes()
	res, err := svc.Allow(context.Background(), "upload:42", time.Hour, max)
	if err != nil {
		t.Fatalf("Allow() over budget returned error: %v", err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Fatalf("Allow() over budget = %+v, want denied with remaining 0", res)
	}
	if repo.writes() != writesBefore {
		t.Fatalf("denial produced %d writes, want 0", repo.writes()-writesBefore)
	}
}

func TestAllowIsKeyed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	if res, err := svc.Allow(context.Background(), "comment:a@example.com:tok", time.Hour, 1); err != nil || !res.Allowed {
		t.Fatalf("first key should be admitted, got %+v err=%v", res, err)
	}
	if res, err := svc.Allow(context.Background(), "comment:b@example.com:tok", time.Hour, 1); err != nil || !res.Allowed {
		t.Fatalf("independent key should be admitted, got %+v err=%v", res, err)
	}
}

func TestWindowRollover(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	const max = 2
	for i := 0; i < max; i++ {
		if res, _ := svc.Allow(context.Background(), "review:tok", time.Hour, max); !res.Allowed {
			t.Fatalf("call %d in first window denied", i+1)
		}
	}
	if res, _ := svc.Allow(context.Background(), "review:tok", time.Hour, max); res.Allowed {
		t.Fatalf("exhausted window still admitted")
	}

	now = now.Add(time.Hour)
	res, err := svc.Allow(context.Background(), "review:tok", time.Hour, max)
	if err != nil {
		t.Fatalf("Allow() after rollover returned error: %v", err)
	}
	if !res.Allowed || res.Remaining != max-1 {
		t.Fatalf("Allow() after rollover = %+v, want fresh window with remaining %d", res, max-1)
	}
}

func TestAllowFailsClosedOnPersistenceError(t *testing.T) {
	repo := newFakeRepo()
	repo.failNext = errors.New("connection reset")
	svc := NewService(repo)

	res, err := svc.Allow(context.Background(), "upload:42", time.Hour, 10)
	if err == nil {
		t.Fatalf("expected error from failing repository")
	}
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	if res.Allowed {
		t.Fatalf("request admitted despite persistence failure")
	}
}

func TestAllowSurvivesInsertRace(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	// Simulate another instance winning the first-insert race: Create
	// reports a conflict, and the re-read sees the winner's row.
	repo.denyCreate = true
	repo.rows["upload:7"] = &models.RateLimit{Key: "upload:7", Count: 1, WindowStart: time.Now().Truncate(time.Hour)}

	res, err := svc.Allow(context.Background(), "upload:7", time.Hour, 3)
	if err != nil {
		t.Fatalf("Allow() returned error: %v", err)
	}
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("Allow() after insert race = %+v, want allowed with remaining 1", res)
	}
}

func TestAllowRejectsInvalidArguments(t *testing.T) {
	svc := NewService(newFakeRepo())
	if _, err := svc.Allow(context.Background(), " ", time.Hour, 5); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := svc.Allow(context.Background(), "k", 0, 5); err == nil {
		t.Fatalf("expected error for zero window")
	}
	if _, err := svc.Allow(context.Background(), "k", time.Hour, 0); err == nil {
		t.Fatalf("expected error for zero max")
	}
}

func TestBucketKey(t *testing.T) {
	b := Bucket{Name: "comment", Window: time.Hour, Max: 20}
	if got := b.Key("a@example.com", "tok"); got != "comment:a@example.com:tok" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestLoadBucketsDefaults(t *testing.T) {
	buckets := LoadBuckets()

	tests := []struct {
		name   string
		bucket Bucket
		max    int
	}{
		{name: "review", bucket: buckets.ReviewFetch, max: 100},
		{name: "invoice_email", bucket: buckets.InvoiceEmail, max: 50},
		{name: "review_email", bucket: buckets.ReviewRequestEmail, max: 30},
		{name: "comment", bucket: buckets.Comment, max: 20},
		{name: "status", bucket: buckets.StatusChange, max: 5},
		{name: "upload", bucket: buckets.Upload, max: 20},
	}

	for _, tt := range tests {
		if tt.bucket.Name != tt.name {
			t.Fatalf("bucket name = %q, want %q", tt.bucket.Name, tt.name)
		}
		if tt.bucket.Max != tt.max {
			t.Fatalf("bucket %s max = %d, want %d", tt.name, tt.bucket.Max, tt.max)
		}
		if tt.bucket.Window != time.Hour {
			t.Fatalf("bucket %s window = %v, want 1h", tt.name, tt.bucket.Window)
		}
	}
}
