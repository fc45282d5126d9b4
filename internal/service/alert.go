package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/adapter/notify"
	"bloodlink/internal/domain"
	"bloodlink/internal/pkg/validate"
	"bloodlink/pkg/utils"
)

// FeedCacheKey 公开告警列表的缓存 key（创建/流转后失效）
const FeedCacheKey = "alerts:open"

type alertStore interface {
	Create(ctx context.Context, a *domain.Alert) error
	FindByID(ctx context.Context, id string) (*domain.Alert, error)
	ListOpen(ctx context.Context) ([]domain.Alert, error)
	Transition(ctx context.Context, id string, from, to domain.AlertStatus) (bool, error)
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type historyStore interface {
	Create(ctx context.Context, h *domain.DonorResponseHistory) error
	FindByAlertAndDonor(ctx context.Context, alertID, donorID string) (*domain.DonorResponseHistory, error)
	Update(ctx context.Context, h *domain.DonorResponseHistory) error
	ListEntriesByDonor(ctx context.Context, donorID string) ([]domain.HistoryEntry, error)
}

type donorDirectory interface {
	FindByID(ctx context.Context, id string) (*domain.Registration, error)
	ListApprovedDonors(ctx context.Context, groups []domain.BloodGroup) ([]domain.Registration, error)
}

type donationStore interface {
	Create(ctx context.Context, d *domain.Donation) error
	SumUnitsByAlert(ctx context.Context, alertID string) (int, error)
}

type feedCache interface {
	Del(ctx context.Context, keys ...string) error
}

type AlertService struct {
	alerts    alertStore
	histories historyStore
	donors    donorDirectory
	donations donationStore
	sms       notify.SMSSender
	mail      notify.Mailer
	cache     feedCache // 可为 nil（如单测）
	openTTL   time.Duration
	log       *zap.Logger
}

type AlertDeps struct {
	Alerts    alertStore
	Histories historyStore
	Donors    donorDirectory
	Donations donationStore
	SMS       notify.SMSSender
	Mail      notify.Mailer
	Cache     feedCache
	OpenTTL   time.Duration
	Log       *zap.Logger
}

func NewAlertService(deps AlertDeps) *AlertService {
	if deps.OpenTTL <= 0 {
		deps.OpenTTL = 24 * time.Hour
	}
	return &AlertService{
		alerts:    deps.Alerts,
		histories: deps.Histories,
		donors:    deps.Donors,
		donations: deps.Donations,
		sms:       deps.SMS,
		mail:      deps.Mail,
		cache:     deps.Cache,
		openTTL:   deps.OpenTTL,
		log:       deps.Log,
	}
}

type CreateAlertInput struct {
	HospitalID string            `json:"hospitalId" validate:"required"`
	BloodGroup domain.BloodGroup `json:"bloodGroup" validate:"required"`
	Units      int               `json:"units" validate:"required,min=1,max=50"`
	Urgency    domain.Urgency    `json:"urgency" validate:"omitempty"`
	Note       string            `json:"note" validate:"omitempty,max=500"`
}

// DistributionResult 一次分发的汇总（通知本身尽力而为）
type DistributionResult struct {
	Matched  int `json:"matched"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
}

// Create 校验发起方是已获批医院后建告警并立即分发
func (s *AlertService) Create(ctx context.Context, in CreateAlertInput) (*domain.Alert, DistributionResult, error) {
	var zero DistributionResult
	if err := validate.Struct(in); err != nil {
		return nil, zero, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if !in.BloodGroup.Valid() {
		return nil, zero, fmt.Errorf("unknown blood group %q: %w", in.BloodGroup, domain.ErrBadRequest)
	}
	if in.Urgency == "" {
		in.Urgency = domain.UrgencyMedium
	}
	if !in.Urgency.Valid() {
		return nil, zero, fmt.Errorf("unknown urgency %q: %w", in.Urgency, domain.ErrBadRequest)
	}

	hosp, err := s.donors.FindByID(ctx, in.HospitalID)
	if err != nil {
		return nil, zero, err
	}
	if hosp == nil || hosp.Kind != domain.KindHospital {
		return nil, zero, fmt.Errorf("hospital %s: %w", in.HospitalID, domain.ErrNotFound)
	}
	if hosp.Status != domain.RegApproved {
		return nil, zero, fmt.Errorf("hospital not approved: %w", domain.ErrForbidden)
	}

	a := &domain.Alert{
		ID:         utils.NewID(),
		HospitalID: in.HospitalID,
		BloodGroup: in.BloodGroup,
		Units:      in.Units,
		Urgency:    in.Urgency,
		Note:       in.Note,
		Status:     domain.AlertOpen,
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, zero, fmt.Errorf("create alert: %w", err)
	}
	s.invalidateFeed(ctx)

	res, err := s.Distribute(ctx, a, hosp)
	return a, res, err
}

// Distribute 匹配可供血的已获批捐献者，逐人建 notified 历史行并发通知。
// 每个捐献者是独立工作单元：历史行写失败或发送失败都不影响其他人
func (s *AlertService) Distribute(ctx context.Context, a *domain.Alert, hosp *domain.Registration) (DistributionResult, error) {
	groups := domain.CompatibleDonors(a.BloodGroup)
	donors, err := s.donors.ListApprovedDonors(ctx, groups)
	if err != nil {
		return DistributionResult{}, fmt.Errorf("list donors: %w", err)
	}

	res := DistributionResult{Matched: len(donors)}
	var mu sync.Mutex
	bump := func(notified bool) {
		mu.Lock()
		if notified {
			res.Notified++
		} else {
			res.Skipped++
		}
		mu.Unlock()
	}

	msg := alertMessage(a, hosp)
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range donors {
		d := d
		g.Go(func() error {
			h := &domain.DonorResponseHistory{
				ID:         utils.NewID(),
				AlertID:    a.ID,
				DonorID:    d.ID,
				Status:     domain.RespNotified,
				NotifiedAt: time.Now().UTC(),
			}
			if err := s.histories.Create(gctx, h); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					// 已通知过该 (alert, donor)，跳过
					bump(false)
					return nil
				}
				s.log.Error("history create failed",
					zap.String("alert_id", a.ID), zap.String("donor_id", d.ID), zap.Error(err))
				bump(false)
				return nil
			}
			s.deliver(gctx, a, d, msg)
			bump(true)
			return nil
		})
	}
	_ = g.Wait()
	return res, nil
}

// deliver 发送失败只记日志，不重试（与全局无重试策略一致）
func (s *AlertService) deliver(ctx context.Context, a *domain.Alert, d domain.Registration, msg string) {
	if d.Phone != "" {
		if err := s.sms.SendSMS(ctx, d.Phone, msg); err != nil {
			s.log.Error("sms send failed",
				zap.String("alert_id", a.ID), zap.String("donor_id", d.ID), zap.Error(err))
		}
	}
	if d.Email != "" {
		subject := fmt.Sprintf("Emergency blood request: %s needed", a.BloodGroup)
		if err := s.mail.SendEmail(d.Email, subject, msg); err != nil {
			s.log.Error("email send failed",
				zap.String("alert_id", a.ID), zap.String("donor_id", d.ID), zap.Error(err))
		}
	}
}

func alertMessage(a *domain.Alert, hosp *domain.Registration) string {
	name := "a nearby hospital"
	if hosp != nil && hosp.OrgName != "" {
		name = hosp.OrgName
	}
	return fmt.Sprintf("URGENT: %s needs %d unit(s) of %s blood (%s urgency). Reply in the app to accept. Ref %s",
		name, a.Units, a.BloodGroup, a.Urgency, a.ID)
}

// OpenAlerts 公开告警列表；读前先做懒过期
func (s *AlertService) OpenAlerts(ctx context.Context) ([]domain.Alert, error) {
	if n, err := s.alerts.ExpireBefore(ctx, time.Now().Add(-s.openTTL)); err != nil {
		s.log.Warn("lazy expire failed", zap.Error(err))
	} else if n > 0 {
		s.invalidateFeed(ctx)
	}
	return s.alerts.ListOpen(ctx)
}

func (s *AlertService) Get(ctx context.Context, id string) (*domain.Alert, error) {
	a, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// Respond 记录接受/拒绝。前提是存在 notified 历史行；confirmed 为终态
func (s *AlertService) Respond(ctx context.Context, alertID, donorID string, accept bool, eta *time.Time) (*domain.DonorResponseHistory, error) {
	h, err := s.histories.FindByAlertAndDonor(ctx, alertID, donorID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("donor %s was not notified for alert %s: %w", donorID, alertID, domain.ErrNotFound)
	}
	if h.Status == domain.RespConfirmed {
		return nil, fmt.Errorf("response already confirmed: %w", domain.ErrConflict)
	}

	now := time.Now().UTC()
	if accept {
		h.Status = domain.RespAccepted
		h.ExpectedArrivalAt = eta
	} else {
		h.Status = domain.RespDeclined
		h.ExpectedArrivalAt = nil
	}
	h.RespondedAt = &now
	if err := s.histories.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update history: %w", err)
	}
	return h, nil
}

// ConfirmArrival 仅 accepted → confirmed；记捐献，单位数够则告警转 fulfilled
func (s *AlertService) ConfirmArrival(ctx context.Context, alertID, donorID string, units int) (*domain.DonorResponseHistory, error) {
	h, err := s.histories.FindByAlertAndDonor(ctx, alertID, donorID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("donor %s was not notified for alert %s: %w", donorID, alertID, domain.ErrNotFound)
	}
	if h.Status != domain.RespAccepted {
		return nil, fmt.Errorf("cannot confirm from status %q: %w", h.Status, domain.ErrConflict)
	}

	h.Status = domain.RespConfirmed
	if err := s.histories.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update history: %w", err)
	}

	if units <= 0 {
		units = 1
	}
	now := time.Now().UTC()
	don := &domain.Donation{
		ID:        utils.NewID(),
		DonorID:   donorID,
		AlertID:   &alertID,
		Units:     units,
		DonatedAt: now,
	}
	if err := s.donations.Create(ctx, don); err != nil {
		s.log.Error("donation record failed",
			zap.String("alert_id", alertID), zap.String("donor_id", donorID), zap.Error(err))
		return h, nil
	}

	s.maybeFulfill(ctx, alertID)
	return h, nil
}

func (s *AlertService) maybeFulfill(ctx context.Context, alertID string) {
	a, err := s.alerts.FindByID(ctx, alertID)
	if err != nil || a == nil || a.Status != domain.AlertOpen {
		return
	}
	sum, err := s.donations.SumUnitsByAlert(ctx, alertID)
	if err != nil {
		s.log.Warn("sum donations failed", zap.String("alert_id", alertID), zap.Error(err))
		return
	}
	if sum < a.Units {
		return
	}
	if ok, err := s.alerts.Transition(ctx, alertID, domain.AlertOpen, domain.AlertFulfilled); err != nil {
		s.log.Warn("fulfill transition failed", zap.String("alert_id", alertID), zap.Error(err))
	} else if ok {
		s.invalidateFeed(ctx)
	}
}

// History 某捐献者的通知/响应历史（含告警摘要）
func (s *AlertService) History(ctx context.Context, donorID string) ([]domain.HistoryEntry, error) {
	return s.histories.ListEntriesByDonor(ctx, donorID)
}

func (s *AlertService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, FeedCacheKey); err != nil {
		s.log.Warn("feed cache invalidate failed", zap.Error(err))
	}
}
