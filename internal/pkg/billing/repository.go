package billing

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrialReminderTarget pairs a trial profile with the owning user's contact
// data for the reminder sweep.
type TrialReminderTarget struct {
	Profile models.BillingProfile
	Email   string
	Name    string
}

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetProfileByUserID(ctx context.Context, userID uint) (*models.BillingProfile, error)
	GetProfileByCustomerID(ctx context.Context, customerID string) (*models.BillingProfile, error)
	UpsertProfile(ctx context.Context, profile *models.BillingProfile) error
	SaveProfile(ctx context.Context, profile *models.BillingProfile) error
	SetOnboardingCompleted(ctx context.Context, userID uint) error
	ListTrialReminderTargets(ctx context.Context, from, until time.Time) ([]TrialReminderTarget, error)
	MarkTrialReminderSent(ctx context.Context, profileID uint, at time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetProfileByUserID(ctx context.Context, userID uint) (*models.BillingProfile, error) {
	var profile models.BillingProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) GetProfileByCustomerID(ctx context.Context, customerID string) (*models.BillingProfile, error) {
	var profile models.BillingProfile
	err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) UpsertProfile(ctx context.Context, profile *models.BillingProfile) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"plan",
			"stripe_customer_id",
			"stripe_subscription_id",
			"trial_start_date",
			"trial_end_date",
			"updated_at",
		}),
	}).Create(profile).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.WithContext(ctx).Where("user_id = ?", profile.UserID).First(profile).Error
}

func (r *gormRepository) SaveProfile(ctx context.Context, profile *models.BillingProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *gormRepository) SetOnboardingCompleted(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("onboarding_completed", true).Error
}

func (r *gormRepository) ListTrialReminderTargets(ctx context.Context, from, until time.Time) ([]TrialReminderTarget, error) {
	var rows []struct {
		models.BillingProfile
		Email string
		Name  string
	}
	err := r.db.WithContext(ctx).
		Model(&models.BillingProfile{}).
		Select("billing_profiles.*, users.email AS email, users.name AS name").
		Joins("JOIN users ON users.id = billing_profiles.user_id").
		Where("billing_profiles.status = ?", models.SubscriptionStatusTrial).
		Where("billing_profiles.trial_end_date IS NOT NULL").
		Where("billing_profiles.trial_end_date BETWEEN ? AND ?", from, until).
		Where("billing_profiles.trial_reminder_sent_at IS NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	targets := make([]TrialReminderTarget, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, TrialReminderTarget{
			Profile: row.BillingProfile,
			Email:   row.Email,
			Name:    row.Name,
		})
	}
	return targets, nil
}

func (r *gormRepository) MarkTrialReminderSent(ctx context.Context, profileID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.BillingProfile{}).
		Where("id = ?", profileID).
		UpdateColumn("trial_reminder_sent_at", at).Error
}
