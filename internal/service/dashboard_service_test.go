package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
)

type fakeDashboardUsers struct {
	total  int
	recent []models.User
	calls  int
}

func (f *fakeDashboardUsers) CountAll(ctx context.Context) (int, error) {
	f.calls++
	return f.total, nil
}

func (f *fakeDashboardUsers) Recent(ctx context.Context, limit int) ([]models.User, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeDashboardRequests struct {
	stats  *models.ServiceStats
	recent []models.ServiceRequest
}

func (f *fakeDashboardRequests) Stats(ctx context.Context) (*models.ServiceStats, error) {
	return f.stats, nil
}

func (f *fakeDashboardRequests) Recent(ctx context.Context, limit int) ([]models.ServiceRequest, error) {
	return f.recent, nil
}

type fakeDashboardContacts struct {
	total int
}

func (f *fakeDashboardContacts) CountAll(ctx context.Context) (int, error) {
	return f.total, nil
}

type fakeDashboardCache struct {
	entries map[string][]byte
}

func newFakeDashboardCache() *fakeDashboardCache {
	return &fakeDashboardCache{entries: map[string][]byte{}}
}

func (f *fakeDashboardCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeDashboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeDashboardCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.entries = map[string][]byte{}
	return nil
}

func TestDashboardOverviewAggregates(t *testing.T) {
	users := &fakeDashboardUsers{total: 12, recent: []models.User{{ID: "user-1"}, {ID: "user-2"}}}
	requests := &fakeDashboardRequests{
		stats: &models.ServiceStats{
			Total:         30,
			ByStatus:      map[string]int{"pending": 20, "completed": 10},
			ByServiceType: map[string]int{"gst-registration": 30},
			ByPriority:    map[string]int{"medium": 30},
		},
		recent: []models.ServiceRequest{{ID: "req-1"}},
	}
	contacts := &fakeDashboardContacts{total: 4}
	svc := NewDashboardService(users, requests, contacts, nil, nil, time.Minute)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, overview.Stats.Users)
	assert.Equal(t, 30, overview.Stats.ServiceRequests)
	assert.Equal(t, 4, overview.Stats.Inquiries)
	assert.Equal(t, 20, overview.Stats.StatusBreakdown["pending"])
	assert.Len(t, overview.RecentUsers, 2)
	assert.Len(t, overview.RecentRequests, 1)
}

func TestDashboardOverviewUsesCache(t *testing.T) {
	users := &fakeDashboardUsers{total: 1}
	requests := &fakeDashboardRequests{stats: &models.ServiceStats{Total: 1, ByStatus: map[string]int{}, ByServiceType: map[string]int{}, ByPriority: map[string]int{}}}
	contacts := &fakeDashboardContacts{}
	cache := newFakeDashboardCache()
	svc := NewDashboardService(users, requests, contacts, cache, nil, time.Minute)

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)
	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, users.calls)
}
