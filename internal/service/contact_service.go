package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
)

type contactRepository interface {
	Create(ctx context.Context, inquiry *models.ContactInquiry) error
	List(ctx context.Context, status *models.InquiryStatus, page, limit int) ([]models.ContactInquiry, int, error)
	UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) error
}

type contactNotifier interface {
	InquiryReceived(inquiry *models.ContactInquiry)
}

// ContactService handles the public contact form and its admin follow-up.
type ContactService struct {
	repo      contactRepository
	notifier  contactNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs a ContactService.
func NewContactService(repo contactRepository, notifier contactNotifier, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContactService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Submit records an inquiry in the pending state and queues the notification
// emails. Notification failures never surface to the caller.
func (s *ContactService) Submit(ctx context.Context, req models.SubmitInquiryRequest) (*models.ContactInquiry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inquiry payload")
	}
	if !req.Subject.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown inquiry subject")
	}

	inquiry := &models.ContactInquiry{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
		Status:  models.InquiryPending,
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create inquiry")
	}

	if s.notifier != nil {
		s.notifier.InquiryReceived(inquiry)
	}

	return inquiry, nil
}

// List returns inquiries for administrators, newest first.
func (s *ContactService) List(ctx context.Context, status *models.InquiryStatus, page, limit int) ([]models.ContactInquiry, *models.Pagination, error) {
	if status != nil && !status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown inquiry status")
	}
	inquiries, total, err := s.repo.List(ctx, status, page, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inquiries")
	}
	return inquiries, models.NewPagination(page, limit, total), nil
}

// UpdateStatus moves an inquiry to a new handling state.
func (s *ContactService) UpdateStatus(ctx context.Context, id string, req models.UpdateInquiryStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inquiry status payload")
	}
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown inquiry status")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "inquiry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inquiry")
	}
	return nil
}
