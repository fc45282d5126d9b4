package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/pkg/validate"
	"bloodlink/pkg/utils"
)

type engageStore interface {
	CreateFeedback(ctx context.Context, f *domain.Feedback) error
	CreateContact(ctx context.Context, m *domain.ContactMessage) error
}

// EngageService 反馈与联系表单
type EngageService struct {
	repo engageStore
	docs documentStore
	log  *zap.Logger
}

func NewEngageService(repo engageStore, docs documentStore, l *zap.Logger) *EngageService {
	return &EngageService{repo: repo, docs: docs, log: l}
}

type FeedbackInput struct {
	Type       string `json:"type" validate:"required,oneof=bug idea other"`
	Message    string `json:"message" validate:"required,max=2000"`
	Screenshot string `json:"screenshot" validate:"omitempty"` // base64 PNG，可选
}

func (s *EngageService) SubmitFeedback(ctx context.Context, userID string, in FeedbackInput) (*domain.Feedback, error) {
	if userID == "" {
		return nil, fmt.Errorf("feedback requires identity: %w", domain.ErrUnauthorized)
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	f := &domain.Feedback{
		ID:      utils.NewID(),
		UserID:  userID,
		Type:    in.Type,
		Message: in.Message,
	}
	// 截图上传失败同材料上传：只告警，引用留空
	if in.Screenshot != "" {
		if key := s.uploadScreenshot(ctx, f.ID, in.Screenshot); key != "" {
			f.ScreenshotKey = &key
		}
	}
	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return f, nil
}

func (s *EngageService) uploadScreenshot(ctx context.Context, feedbackID, b64 string) string {
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		s.log.Warn("screenshot decode failed", zap.String("feedback_id", feedbackID), zap.Error(err))
		return ""
	}
	key := fmt.Sprintf("feedback/%s.png", feedbackID)
	if err := s.docs.Upload(ctx, key, bytes.NewReader(decoded), "image/png"); err != nil {
		s.log.Warn("screenshot upload failed", zap.String("feedback_id", feedbackID), zap.Error(err))
		return ""
	}
	return key
}

type ContactInput struct {
	Name        string `json:"name" validate:"required,max=128"`
	Email       string `json:"email" validate:"required,email"`
	Message     string `json:"message" validate:"required,max=2000"`
	AcceptTerms bool   `json:"acceptTerms"`
}

func (s *EngageService) SubmitContact(ctx context.Context, in ContactInput) (*domain.ContactMessage, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if !in.AcceptTerms {
		return nil, fmt.Errorf("terms must be accepted: %w", domain.ErrBadRequest)
	}
	m := &domain.ContactMessage{
		ID:            utils.NewID(),
		Name:          in.Name,
		Email:         in.Email,
		Message:       in.Message,
		AcceptedTerms: true,
	}
	if err := s.repo.CreateContact(ctx, m); err != nil {
		return nil, fmt.Errorf("create contact message: %w", err)
	}
	return m, nil
}
