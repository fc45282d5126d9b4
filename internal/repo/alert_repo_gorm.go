package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"bloodlink/internal/domain"
)

type AlertRepo struct{ db *gorm.DB }

func NewAlertRepo(db *gorm.DB) *AlertRepo { return &AlertRepo{db: db} }

func (r *AlertRepo) Create(ctx context.Context, a *domain.Alert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AlertRepo) FindByID(ctx context.Context, id string) (*domain.Alert, error) {
	var a domain.Alert
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &a, err
}

func (r *AlertRepo) ListOpen(ctx context.Context) ([]domain.Alert, error) {
	var as []domain.Alert
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.AlertOpen).
		Order("created_at DESC").Find(&as).Error
	return as, err
}

// Transition 单向流转，from 不匹配则 0 行生效
func (r *AlertRepo) Transition(ctx context.Context, id string, from, to domain.AlertStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Alert{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

// ExpireBefore 懒过期：open 且早于 cutoff 的批量转 expired
func (r *AlertRepo) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Alert{}).
		Where("status = ? AND created_at < ?", domain.AlertOpen, cutoff).
		Update("status", domain.AlertExpired)
	return res.RowsAffected, res.Error
}

// AlertOverview 管理端概览行：告警 + 响应计数
type AlertOverview struct {
	domain.Alert
	HospitalName  string `json:"hospitalName"`
	NotifiedCount int64  `json:"notifiedCount"`
	AcceptedCount int64  `json:"acceptedCount"`
}

func (r *AlertRepo) Overview(ctx context.Context, offset, limit int) ([]AlertOverview, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Alert{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []AlertOverview
	err := r.db.WithContext(ctx).Model(&domain.Alert{}).
		Select(`alerts.*, registrations.org_name AS hospital_name,
			(SELECT COUNT(*) FROM donor_response_histories h WHERE h.alert_id = alerts.id) AS notified_count,
			(SELECT COUNT(*) FROM donor_response_histories h WHERE h.alert_id = alerts.id AND h.status IN ('accepted','confirmed')) AS accepted_count`).
		Joins("LEFT JOIN registrations ON registrations.id = alerts.hospital_id").
		Order("alerts.created_at DESC").Offset(offset).Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
