package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
)

type mockApprovalStore struct{ mock.Mock }

func (m *mockApprovalStore) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	args := m.Called(ctx, id)
	if r, _ := args.Get(0).(*domain.Registration); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockApprovalStore) DecideStatus(ctx context.Context, id string, to domain.RegistrationStatus) (bool, error) {
	args := m.Called(ctx, id, to)
	return args.Bool(0), args.Error(1)
}
func (m *mockApprovalStore) ListByStatus(ctx context.Context, status domain.RegistrationStatus, offset, limit int) ([]domain.Registration, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	return args.Get(0).([]domain.Registration), args.Get(1).(int64), args.Error(2)
}

func pendingReg(id string) *domain.Registration {
	return &domain.Registration{ID: id, Kind: domain.KindDonor, Status: domain.RegPending}
}

func TestApprove_PendingToApproved(t *testing.T) {
	regs := &mockApprovalStore{}
	regs.On("FindByID", mock.Anything, "r1").Return(pendingReg("r1"), nil)
	regs.On("DecideStatus", mock.Anything, "r1", domain.RegApproved).Return(true, nil)

	svc := NewApprovalService(regs, &mockDocStore{}, zap.NewNop())
	reg, err := svc.Approve(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.RegApproved, reg.Status)
	regs.AssertExpectations(t)
}

func TestReject_PendingToRejected(t *testing.T) {
	regs := &mockApprovalStore{}
	regs.On("FindByID", mock.Anything, "r1").Return(pendingReg("r1"), nil)
	regs.On("DecideStatus", mock.Anything, "r1", domain.RegRejected).Return(true, nil)

	svc := NewApprovalService(regs, &mockDocStore{}, zap.NewNop())
	reg, err := svc.Reject(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.RegRejected, reg.Status)
}

func TestApprove_NotFound(t *testing.T) {
	regs := &mockApprovalStore{}
	regs.On("FindByID", mock.Anything, "ghost").Return(nil, nil)

	svc := NewApprovalService(regs, &mockDocStore{}, zap.NewNop())
	_, err := svc.Approve(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestApprove_AlreadyDecided(t *testing.T) {
	reg := pendingReg("r1")
	reg.Status = domain.RegRejected
	regs := &mockApprovalStore{}
	regs.On("FindByID", mock.Anything, "r1").Return(reg, nil)

	svc := NewApprovalService(regs, &mockDocStore{}, zap.NewNop())
	_, err := svc.Approve(context.Background(), "r1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	regs.AssertNotCalled(t, "DecideStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_ConcurrentDecisionLoses(t *testing.T) {
	// 读到 PENDING，但条件更新零行：另一管理员已裁决
	regs := &mockApprovalStore{}
	regs.On("FindByID", mock.Anything, "r1").Return(pendingReg("r1"), nil)
	regs.On("DecideStatus", mock.Anything, "r1", domain.RegApproved).Return(false, nil)

	svc := NewApprovalService(regs, &mockDocStore{}, zap.NewNop())
	_, err := svc.Approve(context.Background(), "r1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestListPending_PresignsUploadedDocuments(t *testing.T) {
	key := "registrations/r1/id_proof_id.png"
	row := *pendingReg("r1")
	row.IDProofKey = &key

	regs := &mockApprovalStore{}
	docs := &mockDocStore{}
	regs.On("ListByStatus", mock.Anything, domain.RegPending, 0, 20).
		Return([]domain.Registration{row, *pendingReg("r2")}, int64(2), nil)
	docs.On("PresignedURL", mock.Anything, key, mock.Anything).Return("https://signed.example/id", nil)

	svc := NewApprovalService(regs, docs, zap.NewNop())
	out, total, err := svc.ListPending(context.Background(), 0, 20)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, out, 2)
	assert.Equal(t, "https://signed.example/id", out[0].DocumentURLs[domain.DocIDProof])
	assert.Empty(t, out[1].DocumentURLs)
}

func TestListPending_PresignFailureSkipsURL(t *testing.T) {
	key := "registrations/r1/id_proof_id.png"
	row := *pendingReg("r1")
	row.IDProofKey = &key

	regs := &mockApprovalStore{}
	docs := &mockDocStore{}
	regs.On("ListByStatus", mock.Anything, domain.RegPending, 0, 20).
		Return([]domain.Registration{row}, int64(1), nil)
	docs.On("PresignedURL", mock.Anything, key, mock.Anything).Return("", errors.New("s3 down"))

	svc := NewApprovalService(regs, docs, zap.NewNop())
	out, _, err := svc.ListPending(context.Background(), 0, 20)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].DocumentURLs)
}
