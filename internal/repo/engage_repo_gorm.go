package repo

import (
	"context"

	"gorm.io/gorm"

	"bloodlink/internal/domain"
)

type EngageRepo struct{ db *gorm.DB }

func NewEngageRepo(db *gorm.DB) *EngageRepo { return &EngageRepo{db: db} }

func (r *EngageRepo) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *EngageRepo) CreateContact(ctx context.Context, m *domain.ContactMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}
