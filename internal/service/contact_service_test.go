package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
)

type fakeContactRepo struct {
	inquiries map[string]*models.ContactInquiry
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{inquiries: map[string]*models.ContactInquiry{}}
}

func (f *fakeContactRepo) Create(ctx context.Context, inquiry *models.ContactInquiry) error {
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	inquiry.CreatedAt = time.Now().UTC()
	stored := *inquiry
	f.inquiries[inquiry.ID] = &stored
	return nil
}

func (f *fakeContactRepo) List(ctx context.Context, status *models.InquiryStatus, page, limit int) ([]models.ContactInquiry, int, error) {
	out := []models.ContactInquiry{}
	for _, inquiry := range f.inquiries {
		if status != nil && inquiry.Status != *status {
			continue
		}
		out = append(out, *inquiry)
	}
	return out, len(out), nil
}

func (f *fakeContactRepo) UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) error {
	inquiry, ok := f.inquiries[id]
	if !ok {
		return sql.ErrNoRows
	}
	inquiry.Status = status
	return nil
}

type fakeInquiryNotifier struct {
	received []*models.ContactInquiry
}

func (f *fakeInquiryNotifier) InquiryReceived(inquiry *models.ContactInquiry) {
	f.received = append(f.received, inquiry)
}

func validInquiry() models.SubmitInquiryRequest {
	return models.SubmitInquiryRequest{
		Name:    "Asha Rao",
		Email:   "asha@example.com",
		Phone:   "9900112233",
		Subject: models.SubjectLegal,
		Message: "Need help reviewing a vendor agreement",
	}
}

func TestSubmitInquiryStartsPendingAndNotifies(t *testing.T) {
	repo := newFakeContactRepo()
	notifier := &fakeInquiryNotifier{}
	svc := NewContactService(repo, notifier, nil, nil)

	inquiry, err := svc.Submit(context.Background(), validInquiry())
	require.NoError(t, err)
	assert.Equal(t, models.InquiryPending, inquiry.Status)
	assert.NotEmpty(t, inquiry.ID)
	assert.Len(t, notifier.received, 1)
}

func TestSubmitInquiryRejectsUnknownSubject(t *testing.T) {
	svc := NewContactService(newFakeContactRepo(), &fakeInquiryNotifier{}, nil, nil)

	payload := validInquiry()
	payload.Subject = "astrology"
	_, err := svc.Submit(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateInquiryStatus(t *testing.T) {
	repo := newFakeContactRepo()
	svc := NewContactService(repo, &fakeInquiryNotifier{}, nil, nil)

	inquiry, err := svc.Submit(context.Background(), validInquiry())
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(context.Background(), inquiry.ID, models.UpdateInquiryStatusRequest{Status: models.InquiryResponded}))
	assert.Equal(t, models.InquiryResponded, repo.inquiries[inquiry.ID].Status)

	err = svc.UpdateStatus(context.Background(), "missing", models.UpdateInquiryStatusRequest{Status: models.InquiryClosed})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
