package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bloodlink/internal/domain"
)

type RegistrationRepo struct{ db *gorm.DB }

func NewRegistrationRepo(db *gorm.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func (r *RegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *RegistrationRepo) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	var reg domain.Registration
	err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &reg, err
}

// SetDocumentKey 单列更新，上传成功一份写一份
func (r *RegistrationRepo) SetDocumentKey(ctx context.Context, id string, kind domain.DocumentKind, key string) error {
	col, ok := documentColumn(kind)
	if !ok {
		return domain.ErrBadRequest
	}
	return r.db.WithContext(ctx).Model(&domain.Registration{}).
		Where("id = ?", id).Update(col, key).Error
}

// DecideStatus 守护式流转：仅 PENDING 行可被改写。
// 返回 false 表示该申请不存在或已被裁决
func (r *RegistrationRepo) DecideStatus(ctx context.Context, id string, to domain.RegistrationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Registration{}).
		Where("id = ? AND status = ?", id, domain.RegPending).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *RegistrationRepo) ListByStatus(ctx context.Context, status domain.RegistrationStatus, offset, limit int) ([]domain.Registration, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Registration{}).Where("status = ?", status)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var regs []domain.Registration
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&regs).Error; err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// ListApprovedDonors 按血型集合筛选已获批捐献者（告警分发用）
func (r *RegistrationRepo) ListApprovedDonors(ctx context.Context, groups []domain.BloodGroup) ([]domain.Registration, error) {
	var regs []domain.Registration
	err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ? AND blood_group IN ?", domain.KindDonor, domain.RegApproved, groups).
		Find(&regs).Error
	return regs, err
}

func documentColumn(kind domain.DocumentKind) (string, bool) {
	switch kind {
	case domain.DocIDProof:
		return "id_proof_key", true
	case domain.DocMedicalCert:
		return "medical_cert_key", true
	case domain.DocAddressProof:
		return "address_proof_key", true
	}
	return "", false
}
