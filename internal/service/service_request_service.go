package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kioskpe/letslegal-api/internal/dto"
	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
)

type serviceRequestRepository interface {
	Create(ctx context.Context, req *models.ServiceRequest) error
	List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.ServiceRequestDetail, error)
	FindByIDForOwner(ctx context.Context, id, userID string) (*models.ServiceRequestDetail, error)
	AppendDocument(ctx context.Context, doc *models.RequestDocument) error
	AppendStatus(ctx context.Context, entry *models.StatusHistoryEntry) error
	UpdateAdminFields(ctx context.Context, id string, update models.ServiceRequestAdminUpdate) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ServiceStats, error)
}

type requestAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requestNotifier interface {
	RequestSubmitted(req *models.ServiceRequest)
	RequestStatusChanged(req *models.ServiceRequest, note *string)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const (
	statsCacheKey     = "stats:requests"
	statsCachePattern = "stats:*"
)

// ServiceRequestService owns the request lifecycle: submission, tracking,
// document uploads, status transitions and administrative updates.
type ServiceRequestService struct {
	repo      serviceRequestRepository
	auditor   requestAuditor
	notifier  requestNotifier
	cache     statsCache
	validator *validator.Validate
	logger    *zap.Logger
	statsTTL  time.Duration
}

// NewServiceRequestService constructs a ServiceRequestService.
func NewServiceRequestService(repo serviceRequestRepository, auditor requestAuditor, notifier requestNotifier, cache statsCache, validate *validator.Validate, logger *zap.Logger, statsTTL time.Duration) *ServiceRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &ServiceRequestService{repo: repo, auditor: auditor, notifier: notifier, cache: cache, validator: validate, logger: logger, statsTTL: statsTTL}
}

// Submit creates a new request in the pending state. userID is nil for guest
// submissions. The initial state is not written to the status history.
func (s *ServiceRequestService) Submit(ctx context.Context, req models.SubmitServiceRequestRequest, userID *string) (*models.ServiceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service request payload")
	}
	if !req.ServiceType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown service type")
	}
	if req.BusinessType != nil && !req.BusinessType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown business type")
	}

	request := &models.ServiceRequest{
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		ServiceType:  req.ServiceType,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
		Description:  req.Description,
		Status:       models.StatusPending,
		Priority:     models.PriorityMedium,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service request")
	}

	if s.notifier != nil {
		s.notifier.RequestSubmitted(request)
	}
	s.invalidateStats(ctx)

	return request, nil
}

// ListOwn returns the caller's requests, newest first.
func (s *ServiceRequestService) ListOwn(ctx context.Context, userID string, filter models.ServiceRequestFilter) ([]models.ServiceRequest, *models.Pagination, error) {
	filter.UserID = userID
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list service requests")
	}
	return requests, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// GetOwn returns one of the caller's requests. A request owned by someone else
// is reported as absent.
func (s *ServiceRequestService) GetOwn(ctx context.Context, id, userID string) (*models.ServiceRequestDetail, error) {
	detail, err := s.repo.FindByIDForOwner(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service request")
	}
	return detail, nil
}

// Track returns the public view of a request by its reference ID. No
// authentication is required; the projection never exposes admin notes.
func (s *ServiceRequestService) Track(ctx context.Context, id string) (*dto.TrackView, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service request")
	}
	return dto.NewTrackView(detail), nil
}

// AttachDocument appends an attachment to a request the caller may access.
// Owners attach to their own requests; admins to any. A request that exists
// but belongs to someone else is forbidden, not hidden: the reference is
// already public through tracking.
func (s *ServiceRequestService) AttachDocument(ctx context.Context, id, userID string, isAdmin bool, req models.AttachDocumentRequest) (*models.ServiceRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	if !isAdmin {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service request")
		}
		if existing.UserID == nil || *existing.UserID != userID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this service request")
		}
	}

	doc := &models.RequestDocument{RequestID: id, Name: req.Name, URL: req.URL}
	if err := s.repo.AppendDocument(ctx, doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach document")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload service request")
	}
	return detail, nil
}

// ListAll returns requests across all users for administrators.
func (s *ServiceRequestService) ListAll(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, *models.Pagination, error) {
	filter.UserID = ""
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list service requests")
	}
	return requests, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// GetDetail returns the full request detail including admin notes.
func (s *ServiceRequestService) GetDetail(ctx context.Context, id string) (*models.ServiceRequestDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service request")
	}
	return detail, nil
}

// TransitionStatus moves a request to a new state and appends the history
// entry. Any state may follow any other; the first completed transition stamps
// the completion date permanently.
func (s *ServiceRequestService) TransitionStatus(ctx context.Context, id, actorID string, req models.TransitionStatusRequest) (*models.ServiceRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}

	entry := &models.StatusHistoryEntry{
		RequestID: id,
		Status:    req.Status,
		Note:      req.Note,
		UpdatedBy: actorID,
	}
	if err := s.repo.AppendStatus(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition status")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload service request")
	}

	if s.auditor != nil {
		newValues, _ := json.Marshal(map[string]interface{}{"status": req.Status, "note": req.Note})
		if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionStatusChange,
			Resource:   "service_request",
			ResourceID: &id,
			NewValues:  newValues,
		}); err != nil {
			s.logger.Warn("failed to record status change audit log", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.RequestStatusChanged(&detail.ServiceRequest, req.Note)
	}
	s.invalidateStats(ctx)

	return detail, nil
}

// UpdateDetails applies a partial update of the administrative metadata.
func (s *ServiceRequestService) UpdateDetails(ctx context.Context, id string, req models.UpdateRequestDetailsRequest) (*models.ServiceRequestDetail, error) {
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
	}
	if req.AssignedTo != nil {
		if _, err := uuid.Parse(*req.AssignedTo); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned_to must be a user id")
		}
	}

	update := models.ServiceRequestAdminUpdate{
		Priority:                req.Priority,
		AssignedTo:              req.AssignedTo,
		AdminNotes:              req.AdminNotes,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
	}
	if err := s.repo.UpdateAdminFields(ctx, id, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service request")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload service request")
	}
	return detail, nil
}

// Delete removes a request and its logs permanently.
func (s *ServiceRequestService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete service request")
	}

	if s.auditor != nil {
		if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionRequestDelete,
			Resource:   "service_request",
			ResourceID: &id,
		}); err != nil {
			s.logger.Warn("failed to record delete audit log", zap.Error(err))
		}
	}
	s.invalidateStats(ctx)

	return nil
}

// Stats aggregates request counters, served from cache when warm.
func (s *ServiceRequestService) Stats(ctx context.Context) (*models.ServiceStats, error) {
	if s.cache != nil {
		var cached models.ServiceStats
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate request stats")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *ServiceRequestService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, statsCachePattern); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
