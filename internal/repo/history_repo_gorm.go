package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"bloodlink/internal/domain"
)

type HistoryRepo struct{ db *gorm.DB }

func NewHistoryRepo(db *gorm.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// Create 依赖 (alert_id, donor_id) 唯一索引；
// 重复通知映射为 ErrConflict，调用方按"已通知过"处理
func (r *HistoryRepo) Create(ctx context.Context, h *domain.DonorResponseHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("donor already notified for alert: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *HistoryRepo) FindByAlertAndDonor(ctx context.Context, alertID, donorID string) (*domain.DonorResponseHistory, error) {
	var h domain.DonorResponseHistory
	err := r.db.WithContext(ctx).
		First(&h, "alert_id = ? AND donor_id = ?", alertID, donorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &h, err
}

func (r *HistoryRepo) Update(ctx context.Context, h *domain.DonorResponseHistory) error {
	return r.db.WithContext(ctx).Save(h).Error
}

// ListEntriesByDonor 历史视图：join 告警与发起医院
func (r *HistoryRepo) ListEntriesByDonor(ctx context.Context, donorID string) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := r.db.WithContext(ctx).Model(&domain.DonorResponseHistory{}).
		Select(`donor_response_histories.*,
			alerts.blood_group AS alert_blood_group,
			alerts.units AS alert_units,
			alerts.urgency AS alert_urgency,
			alerts.status AS alert_status,
			registrations.org_name AS hospital_name`).
		Joins("JOIN alerts ON alerts.id = donor_response_histories.alert_id").
		Joins("LEFT JOIN registrations ON registrations.id = alerts.hospital_id").
		Where("donor_response_histories.donor_id = ?", donorID).
		Order("donor_response_histories.notified_at DESC").
		Scan(&entries).Error
	return entries, err
}

// 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
