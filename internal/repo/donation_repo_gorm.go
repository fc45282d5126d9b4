package repo

import (
	"context"

	"gorm.io/gorm"

	"bloodlink/internal/domain"
)

type DonationRepo struct{ db *gorm.DB }

func NewDonationRepo(db *gorm.DB) *DonationRepo { return &DonationRepo{db: db} }

func (r *DonationRepo) Create(ctx context.Context, d *domain.Donation) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// SumUnitsByAlert 已确认捐献单位数（懒判定 fulfilled 用）
func (r *DonationRepo) SumUnitsByAlert(ctx context.Context, alertID string) (int, error) {
	var sum *int
	err := r.db.WithContext(ctx).Model(&domain.Donation{}).
		Where("alert_id = ?", alertID).
		Select("SUM(units)").Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return *sum, nil
}

func (r *DonationRepo) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	var ds []domain.Donation
	err := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("donated_at DESC").Find(&ds).Error
	return ds, err
}
