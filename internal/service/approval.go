package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
)

type approvalStore interface {
	FindByID(ctx context.Context, id string) (*domain.Registration, error)
	DecideStatus(ctx context.Context, id string, to domain.RegistrationStatus) (bool, error)
	ListByStatus(ctx context.Context, status domain.RegistrationStatus, offset, limit int) ([]domain.Registration, int64, error)
}

// ApprovalService 管理端裁决：PENDING → APPROVED/REJECTED，均为终态
type ApprovalService struct {
	regs approvalStore
	docs documentStore
	log  *zap.Logger
}

func NewApprovalService(regs approvalStore, docs documentStore, l *zap.Logger) *ApprovalService {
	return &ApprovalService{regs: regs, docs: docs, log: l}
}

func (s *ApprovalService) Approve(ctx context.Context, id string) (*domain.Registration, error) {
	return s.decide(ctx, id, domain.RegApproved)
}

func (s *ApprovalService) Reject(ctx context.Context, id string) (*domain.Registration, error) {
	return s.decide(ctx, id, domain.RegRejected)
}

func (s *ApprovalService) decide(ctx context.Context, id string, to domain.RegistrationStatus) (*domain.Registration, error) {
	reg, err := s.regs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("registration %s: %w", id, domain.ErrNotFound)
	}
	if reg.Status != domain.RegPending {
		return nil, fmt.Errorf("registration already %s: %w", reg.Status, domain.ErrConflict)
	}
	// 条件更新兜底并发：两个管理员同时裁决时只有一个生效
	ok, err := s.regs.DecideStatus(ctx, id, to)
	if err != nil {
		return nil, fmt.Errorf("decide registration: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("registration already decided: %w", domain.ErrConflict)
	}
	reg.Status = to
	s.log.Info("registration decided",
		zap.String("registration_id", id), zap.String("status", string(to)))
	return reg, nil
}

// PendingRegistration 审核列表行：申请 + 材料限时链接
type PendingRegistration struct {
	domain.Registration
	DocumentURLs map[domain.DocumentKind]string `json:"documentUrls"`
}

func (s *ApprovalService) ListPending(ctx context.Context, offset, limit int) ([]PendingRegistration, int64, error) {
	regs, total, err := s.regs.ListByStatus(ctx, domain.RegPending, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PendingRegistration, 0, len(regs))
	for _, reg := range regs {
		p := PendingRegistration{Registration: reg, DocumentURLs: map[domain.DocumentKind]string{}}
		for _, kind := range []domain.DocumentKind{domain.DocIDProof, domain.DocMedicalCert, domain.DocAddressProof} {
			key := reg.DocumentKey(kind)
			if key == nil {
				continue
			}
			u, err := s.docs.PresignedURL(ctx, *key, presignTTL)
			if err != nil {
				s.log.Warn("presign failed", zap.String("key", *key), zap.Error(err))
				continue
			}
			p.DocumentURLs[kind] = u
		}
		out = append(out, p)
	}
	return out, total, nil
}
