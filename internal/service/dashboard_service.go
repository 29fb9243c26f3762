package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kioskpe/letslegal-api/internal/dto"
	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
)

const dashboardCacheKey = "stats:dashboard"

type dashboardUserRepository interface {
	CountAll(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]models.User, error)
}

type dashboardRequestRepository interface {
	Stats(ctx context.Context) (*models.ServiceStats, error)
	Recent(ctx context.Context, limit int) ([]models.ServiceRequest, error)
}

type dashboardContactRepository interface {
	CountAll(ctx context.Context) (int, error)
}

// DashboardService assembles the admin landing page payload.
type DashboardService struct {
	users    dashboardUserRepository
	requests dashboardRequestRepository
	contacts dashboardContactRepository
	cache    statsCache
	logger   *zap.Logger
	ttl      time.Duration
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(users dashboardUserRepository, requests dashboardRequestRepository, contacts dashboardContactRepository, cache statsCache, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &DashboardService{users: users, requests: requests, contacts: contacts, cache: cache, logger: logger, ttl: ttl}
}

// Overview returns headline counters, breakdowns and recent activity. The
// payload is cached briefly to keep the landing page cheap.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, error) {
	if s.cache != nil {
		var cached dto.DashboardResponse
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	userCount, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	requestStats, err := s.requests.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate request stats")
	}
	inquiryCount, err := s.contacts.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count inquiries")
	}
	recentUsers, err := s.users.Recent(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent users")
	}
	recentRequests, err := s.requests.Recent(ctx, 10)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent requests")
	}

	overview := &dto.DashboardResponse{
		Stats: dto.DashboardStats{
			Users:                userCount,
			ServiceRequests:      requestStats.Total,
			Inquiries:            inquiryCount,
			StatusBreakdown:      requestStats.ByStatus,
			ServiceTypeBreakdown: requestStats.ByServiceType,
			PriorityBreakdown:    requestStats.ByPriority,
		},
		RecentUsers:    recentUsers,
		RecentRequests: recentRequests,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, overview, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return overview, nil
}
