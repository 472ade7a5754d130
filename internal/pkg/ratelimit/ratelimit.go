package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPersistence wraps storage failures during limit bookkeeping. Callers
// must treat it as a denial (fail closed): the budget state is unknown, so
// admitting the request would make the limiter useless exactly when the
// store is struggling.
var ErrPersistence = errors.New("rate limit persistence failed")

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Remaining int
}

// Service is a keyed sliding-window counter shared across all handler
// instances through a persisted counter table. There is no in-memory state;
// concurrent instances coordinate only via the store.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a rate limit service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Allow checks and consumes one unit of budget for key within the current
// window. Exactly one persisted write happens on admission, none on denial.
// The increment is a single conditional statement with a ceiling check, so
// concurrent callers cannot over-admit past max.
func (s *Service) Allow(ctx context.Context, key string, window time.Duration, max int) (Result, error) {
	if strings.TrimSpace(key) == "" {
		return Result{}, errors.New("rate limit key is required")
	}
	if window <= 0 || max <= 0 {
		return Result{}, errors.New("rate limit window and max must be positive")
	}

	windowStart := s.now().Truncate(window)

	row, err := s.repo.GetCurrent(ctx, key, windowStart)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if row == nil {
		created, err := s.repo.Create(ctx, key, windowStart)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if created {
			return Result{Allowed: true, Remaining: max - 1}, nil
		}
		// Lost the insert race; re-read and fall through to the increment path.
		row, err = s.repo.GetCurrent(ctx, key, windowStart)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if row == nil {
			return Result{}, fmt.Errorf("%w: counter row vanished after conflict", ErrPersistence)
		}
	}

	if row.Count >= max {
		return Result{Allowed: false, Remaining: 0}, nil
	}

	incremented, err := s.repo.Increment(ctx, key, windowStart, max)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !incremented {
		// A concurrent caller consumed the last unit between read and update.
		return Result{Allowed: false, Remaining: 0}, nil
	}

	remaining := max - row.Count - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}
