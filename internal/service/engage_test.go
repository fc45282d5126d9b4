package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
)

type mockEngageStore struct{ mock.Mock }

func (m *mockEngageStore) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	return m.Called(ctx, f).Error(0)
}
func (m *mockEngageStore) CreateContact(ctx context.Context, c *domain.ContactMessage) error {
	return m.Called(ctx, c).Error(0)
}

func TestSubmitFeedback_RequiresIdentity(t *testing.T) {
	svc := NewEngageService(&mockEngageStore{}, &mockDocStore{}, zap.NewNop())
	_, err := svc.SubmitFeedback(context.Background(), "", FeedbackInput{Type: "bug", Message: "broken"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestSubmitFeedback_InvalidType(t *testing.T) {
	svc := NewEngageService(&mockEngageStore{}, &mockDocStore{}, zap.NewNop())
	_, err := svc.SubmitFeedback(context.Background(), "u1", FeedbackInput{Type: "rant", Message: "broken"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSubmitFeedback_ScreenshotUploaded(t *testing.T) {
	store := &mockEngageStore{}
	docs := &mockDocStore{}
	store.On("CreateFeedback", mock.Anything, mock.Anything).Return(nil)
	docs.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/png").Return(nil)

	svc := NewEngageService(store, docs, zap.NewNop())
	f, err := svc.SubmitFeedback(context.Background(), "u1", FeedbackInput{
		Type:       "bug",
		Message:    "screen goes blank",
		Screenshot: base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	})

	require.NoError(t, err)
	require.NotNil(t, f.ScreenshotKey)
	assert.Equal(t, "feedback/"+f.ID+".png", *f.ScreenshotKey)
}

func TestSubmitFeedback_ScreenshotFailureKeepsFeedback(t *testing.T) {
	store := &mockEngageStore{}
	docs := &mockDocStore{}
	store.On("CreateFeedback", mock.Anything, mock.Anything).Return(nil)
	docs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("s3 down"))

	svc := NewEngageService(store, docs, zap.NewNop())
	f, err := svc.SubmitFeedback(context.Background(), "u1", FeedbackInput{
		Type:       "bug",
		Message:    "screen goes blank",
		Screenshot: base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	})

	// 截图丢了反馈也要留下
	require.NoError(t, err)
	assert.Nil(t, f.ScreenshotKey)
	store.AssertCalled(t, "CreateFeedback", mock.Anything, mock.Anything)
}

func TestSubmitFeedback_BadBase64Ignored(t *testing.T) {
	store := &mockEngageStore{}
	docs := &mockDocStore{}
	store.On("CreateFeedback", mock.Anything, mock.Anything).Return(nil)

	svc := NewEngageService(store, docs, zap.NewNop())
	f, err := svc.SubmitFeedback(context.Background(), "u1", FeedbackInput{
		Type:       "idea",
		Message:    "dark mode",
		Screenshot: "%%%not-base64%%%",
	})

	require.NoError(t, err)
	assert.Nil(t, f.ScreenshotKey)
	docs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitContact_RequiresTerms(t *testing.T) {
	svc := NewEngageService(&mockEngageStore{}, &mockDocStore{}, zap.NewNop())
	_, err := svc.SubmitContact(context.Background(), ContactInput{
		Name: "Bob", Email: "bob@example.com", Message: "hi", AcceptTerms: false,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSubmitContact_Stored(t *testing.T) {
	store := &mockEngageStore{}
	store.On("CreateContact", mock.Anything, mock.Anything).Return(nil)

	svc := NewEngageService(store, &mockDocStore{}, zap.NewNop())
	msg, err := svc.SubmitContact(context.Background(), ContactInput{
		Name: "Bob", Email: "bob@example.com", Message: "how do I donate?", AcceptTerms: true,
	})

	require.NoError(t, err)
	assert.True(t, msg.AcceptedTerms)
	assert.NotEmpty(t, msg.ID)
}
