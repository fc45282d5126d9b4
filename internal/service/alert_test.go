package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
)

// --- mocks ---

type mockAlertStore struct{ mock.Mock }

func (m *mockAlertStore) Create(ctx context.Context, a *domain.Alert) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAlertStore) FindByID(ctx context.Context, id string) (*domain.Alert, error) {
	args := m.Called(ctx, id)
	if a, _ := args.Get(0).(*domain.Alert); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAlertStore) ListOpen(ctx context.Context) ([]domain.Alert, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Alert), args.Error(1)
}
func (m *mockAlertStore) Transition(ctx context.Context, id string, from, to domain.AlertStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}
func (m *mockAlertStore) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockHistoryStore struct{ mock.Mock }

func (m *mockHistoryStore) Create(ctx context.Context, h *domain.DonorResponseHistory) error {
	return m.Called(ctx, h).Error(0)
}
func (m *mockHistoryStore) FindByAlertAndDonor(ctx context.Context, alertID, donorID string) (*domain.DonorResponseHistory, error) {
	args := m.Called(ctx, alertID, donorID)
	if h, _ := args.Get(0).(*domain.DonorResponseHistory); h != nil {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockHistoryStore) Update(ctx context.Context, h *domain.DonorResponseHistory) error {
	return m.Called(ctx, h).Error(0)
}
func (m *mockHistoryStore) ListEntriesByDonor(ctx context.Context, donorID string) ([]domain.HistoryEntry, error) {
	args := m.Called(ctx, donorID)
	return args.Get(0).([]domain.HistoryEntry), args.Error(1)
}

type mockDonorDirectory struct{ mock.Mock }

func (m *mockDonorDirectory) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	args := m.Called(ctx, id)
	if r, _ := args.Get(0).(*domain.Registration); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDonorDirectory) ListApprovedDonors(ctx context.Context, groups []domain.BloodGroup) ([]domain.Registration, error) {
	args := m.Called(ctx, groups)
	return args.Get(0).([]domain.Registration), args.Error(1)
}

type mockDonationStore struct{ mock.Mock }

func (m *mockDonationStore) Create(ctx context.Context, d *domain.Donation) error {
	return m.Called(ctx, d).Error(0)
}
func (m *mockDonationStore) SumUnitsByAlert(ctx context.Context, alertID string) (int, error) {
	args := m.Called(ctx, alertID)
	return args.Int(0), args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockFeedCache struct{ mock.Mock }

func (m *mockFeedCache) Del(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

// --- helpers ---

type alertMocks struct {
	alerts    *mockAlertStore
	histories *mockHistoryStore
	donors    *mockDonorDirectory
	donations *mockDonationStore
	sms       *mockSMS
	mail      *mockMailer
}

func newAlertService(m alertMocks, cache feedCache) *AlertService {
	deps := AlertDeps{
		Alerts:    m.alerts,
		Histories: m.histories,
		Donors:    m.donors,
		Donations: m.donations,
		SMS:       m.sms,
		Mail:      m.mail,
		OpenTTL:   24 * time.Hour,
		Log:       zap.NewNop(),
	}
	if cache != nil {
		deps.Cache = cache
	}
	return NewAlertService(deps)
}

func approvedHospital() *domain.Registration {
	return &domain.Registration{
		ID:      "h1",
		Kind:    domain.KindHospital,
		OrgName: "City General",
		Status:  domain.RegApproved,
	}
}

func donorRow(id string, group domain.BloodGroup) domain.Registration {
	return domain.Registration{
		ID:         id,
		Kind:       domain.KindDonor,
		BloodGroup: group,
		Phone:      "+1555000" + id,
		Email:      id + "@example.com",
		Status:     domain.RegApproved,
	}
}

// --- Create tests ---

func TestCreateAlert_HospitalNotFound(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.donors.On("FindByID", mock.Anything, "ghost").Return(nil, nil)

	svc := newAlertService(m, nil)
	_, _, err := svc.Create(context.Background(), CreateAlertInput{
		HospitalID: "ghost", BloodGroup: domain.BloodAPos, Units: 2,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	m.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateAlert_HospitalNotApproved(t *testing.T) {
	hosp := approvedHospital()
	hosp.Status = domain.RegPending

	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.donors.On("FindByID", mock.Anything, "h1").Return(hosp, nil)

	svc := newAlertService(m, nil)
	_, _, err := svc.Create(context.Background(), CreateAlertInput{
		HospitalID: "h1", BloodGroup: domain.BloodAPos, Units: 2,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestCreateAlert_DistributesToCompatibleDonors(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.donors.On("FindByID", mock.Anything, "h1").Return(approvedHospital(), nil)
	m.alerts.On("Create", mock.Anything, mock.Anything).Return(nil)
	// O- 受血方只能收 O-
	m.donors.On("ListApprovedDonors", mock.Anything, []domain.BloodGroup{domain.BloodONeg}).
		Return([]domain.Registration{donorRow("d1", domain.BloodONeg), donorRow("d2", domain.BloodONeg)}, nil)
	m.histories.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.mail.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	cache := &mockFeedCache{}
	cache.On("Del", mock.Anything, []string{FeedCacheKey}).Return(nil)

	svc := newAlertService(m, cache)
	a, res, err := svc.Create(context.Background(), CreateAlertInput{
		HospitalID: "h1", BloodGroup: domain.BloodONeg, Units: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.AlertOpen, a.Status)
	assert.Equal(t, domain.UrgencyMedium, a.Urgency)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Notified)
	assert.Equal(t, 0, res.Skipped)
	m.histories.AssertNumberOfCalls(t, "Create", 2)
	m.sms.AssertNumberOfCalls(t, "SendSMS", 2)
	cache.AssertCalled(t, "Del", mock.Anything, []string{FeedCacheKey})
}

func TestDistribute_DuplicateHistorySkipped(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.donors.On("ListApprovedDonors", mock.Anything, mock.Anything).
		Return([]domain.Registration{donorRow("d1", domain.BloodONeg)}, nil)
	m.histories.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	svc := newAlertService(m, nil)
	res, err := svc.Distribute(context.Background(),
		&domain.Alert{ID: "a1", BloodGroup: domain.BloodONeg, Units: 1, Urgency: domain.UrgencyHigh, Status: domain.AlertOpen},
		approvedHospital())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 0, res.Notified)
	assert.Equal(t, 1, res.Skipped)
	// 已通知过 → 不再发送
	m.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestDistribute_SendFailureStillCountsNotified(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.donors.On("ListApprovedDonors", mock.Anything, mock.Anything).
		Return([]domain.Registration{donorRow("d1", domain.BloodONeg), donorRow("d2", domain.BloodONeg)}, nil)
	m.histories.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sns throttled"))
	m.mail.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newAlertService(m, nil)
	res, err := svc.Distribute(context.Background(),
		&domain.Alert{ID: "a1", BloodGroup: domain.BloodONeg, Units: 1, Urgency: domain.UrgencyHigh, Status: domain.AlertOpen},
		approvedHospital())

	// 发送失败只记日志：历史行已落，计 notified
	require.NoError(t, err)
	assert.Equal(t, 2, res.Notified)
	assert.Equal(t, 0, res.Skipped)
}

// --- Respond / ConfirmArrival tests ---

func TestRespond_NotNotified(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").Return(nil, nil)

	svc := newAlertService(m, nil)
	_, err := svc.Respond(context.Background(), "a1", "d1", true, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRespond_ConfirmedIsTerminal(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").
		Return(&domain.DonorResponseHistory{ID: "h1", Status: domain.RespConfirmed}, nil)

	svc := newAlertService(m, nil)
	_, err := svc.Respond(context.Background(), "a1", "d1", false, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	m.histories.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRespond_AcceptSetsEta(t *testing.T) {
	eta := time.Now().Add(2 * time.Hour)
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").
		Return(&domain.DonorResponseHistory{ID: "h1", Status: domain.RespNotified}, nil)
	m.histories.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := newAlertService(m, nil)
	h, err := svc.Respond(context.Background(), "a1", "d1", true, &eta)

	require.NoError(t, err)
	assert.Equal(t, domain.RespAccepted, h.Status)
	require.NotNil(t, h.RespondedAt)
	assert.Equal(t, &eta, h.ExpectedArrivalAt)
}

func TestRespond_DeclineClearsEta(t *testing.T) {
	eta := time.Now()
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").
		Return(&domain.DonorResponseHistory{ID: "h1", Status: domain.RespAccepted, ExpectedArrivalAt: &eta}, nil)
	m.histories.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := newAlertService(m, nil)
	h, err := svc.Respond(context.Background(), "a1", "d1", false, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.RespDeclined, h.Status)
	assert.Nil(t, h.ExpectedArrivalAt)
}

func TestConfirmArrival_OnlyFromAccepted(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").
		Return(&domain.DonorResponseHistory{ID: "h1", Status: domain.RespNotified}, nil)

	svc := newAlertService(m, nil)
	_, err := svc.ConfirmArrival(context.Background(), "a1", "d1", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestConfirmArrival_FulfillsWhenUnitsMet(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").
		Return(&domain.DonorResponseHistory{ID: "h1", AlertID: "a1", DonorID: "d1", Status: domain.RespAccepted}, nil)
	m.histories.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.donations.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.alerts.On("FindByID", mock.Anything, "a1").
		Return(&domain.Alert{ID: "a1", Units: 2, Status: domain.AlertOpen}, nil)
	m.donations.On("SumUnitsByAlert", mock.Anything, "a1").Return(2, nil)
	m.alerts.On("Transition", mock.Anything, "a1", domain.AlertOpen, domain.AlertFulfilled).Return(true, nil)

	cache := &mockFeedCache{}
	cache.On("Del", mock.Anything, []string{FeedCacheKey}).Return(nil)

	svc := newAlertService(m, cache)
	h, err := svc.ConfirmArrival(context.Background(), "a1", "d1", 2)

	require.NoError(t, err)
	assert.Equal(t, domain.RespConfirmed, h.Status)
	m.alerts.AssertCalled(t, "Transition", mock.Anything, "a1", domain.AlertOpen, domain.AlertFulfilled)
	cache.AssertCalled(t, "Del", mock.Anything, []string{FeedCacheKey})
}

func TestConfirmArrival_BelowTargetStaysOpen(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.histories.On("FindByAlertAndDonor", mock.Anything, "a1", "d1").
		Return(&domain.DonorResponseHistory{ID: "h1", AlertID: "a1", DonorID: "d1", Status: domain.RespAccepted}, nil)
	m.histories.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.donations.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.alerts.On("FindByID", mock.Anything, "a1").
		Return(&domain.Alert{ID: "a1", Units: 5, Status: domain.AlertOpen}, nil)
	m.donations.On("SumUnitsByAlert", mock.Anything, "a1").Return(1, nil)

	svc := newAlertService(m, nil)
	_, err := svc.ConfirmArrival(context.Background(), "a1", "d1", 1)

	require.NoError(t, err)
	m.alerts.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- OpenAlerts tests ---

func TestOpenAlerts_LazyExpiryInvalidatesFeed(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.alerts.On("ExpireBefore", mock.Anything, mock.Anything).Return(int64(3), nil)
	m.alerts.On("ListOpen", mock.Anything).Return([]domain.Alert{}, nil)

	cache := &mockFeedCache{}
	cache.On("Del", mock.Anything, []string{FeedCacheKey}).Return(nil)

	svc := newAlertService(m, cache)
	_, err := svc.OpenAlerts(context.Background())

	require.NoError(t, err)
	cache.AssertCalled(t, "Del", mock.Anything, []string{FeedCacheKey})
}

func TestOpenAlerts_ExpireFailureStillLists(t *testing.T) {
	m := alertMocks{alerts: &mockAlertStore{}, histories: &mockHistoryStore{}, donors: &mockDonorDirectory{}, donations: &mockDonationStore{}, sms: &mockSMS{}, mail: &mockMailer{}}
	m.alerts.On("ExpireBefore", mock.Anything, mock.Anything).Return(int64(0), errors.New("db hiccup"))
	m.alerts.On("ListOpen", mock.Anything).Return([]domain.Alert{{ID: "a1"}}, nil)

	svc := newAlertService(m, nil)
	as, err := svc.OpenAlerts(context.Background())

	require.NoError(t, err)
	assert.Len(t, as, 1)
}
