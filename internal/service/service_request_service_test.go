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

type fakeRequestRepo struct {
	requests  map[string]*models.ServiceRequest
	documents map[string][]models.RequestDocument
	history   map[string][]models.StatusHistoryEntry
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		requests:  map[string]*models.ServiceRequest{},
		documents: map[string][]models.RequestDocument{},
		history:   map[string][]models.StatusHistoryEntry{},
	}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	stored := *req
	f.requests[req.ID] = &stored
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, int, error) {
	out := []models.ServiceRequest{}
	for _, req := range f.requests {
		if filter.UserID != "" && (req.UserID == nil || *req.UserID != filter.UserID) {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (f *fakeRequestRepo) detail(id string) *models.ServiceRequestDetail {
	req := f.requests[id]
	return &models.ServiceRequestDetail{
		ServiceRequest: *req,
		Documents:      append([]models.RequestDocument{}, f.documents[id]...),
		StatusHistory:  append([]models.StatusHistoryEntry{}, f.history[id]...),
	}
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id string) (*models.ServiceRequestDetail, error) {
	if _, ok := f.requests[id]; !ok {
		return nil, sql.ErrNoRows
	}
	return f.detail(id), nil
}

func (f *fakeRequestRepo) FindByIDForOwner(ctx context.Context, id, userID string) (*models.ServiceRequestDetail, error) {
	req, ok := f.requests[id]
	if !ok || req.UserID == nil || *req.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return f.detail(id), nil
}

func (f *fakeRequestRepo) AppendDocument(ctx context.Context, doc *models.RequestDocument) error {
	if _, ok := f.requests[doc.RequestID]; !ok {
		return sql.ErrNoRows
	}
	doc.Position = len(f.documents[doc.RequestID]) + 1
	doc.UploadedAt = time.Now().UTC()
	f.documents[doc.RequestID] = append(f.documents[doc.RequestID], *doc)
	return nil
}

func (f *fakeRequestRepo) AppendStatus(ctx context.Context, entry *models.StatusHistoryEntry) error {
	req, ok := f.requests[entry.RequestID]
	if !ok {
		return sql.ErrNoRows
	}
	entry.UpdatedAt = time.Now().UTC()
	req.Status = entry.Status
	req.UpdatedAt = entry.UpdatedAt
	if entry.Status == models.StatusCompleted && req.CompletedDate == nil {
		ts := entry.UpdatedAt
		req.CompletedDate = &ts
	}
	f.history[entry.RequestID] = append(f.history[entry.RequestID], *entry)
	return nil
}

func (f *fakeRequestRepo) UpdateAdminFields(ctx context.Context, id string, update models.ServiceRequestAdminUpdate) error {
	req, ok := f.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Priority != nil {
		req.Priority = *update.Priority
	}
	if update.AssignedTo != nil {
		req.AssignedTo = update.AssignedTo
	}
	if update.AdminNotes != nil {
		req.AdminNotes = update.AdminNotes
	}
	if update.EstimatedCompletionDate != nil {
		req.EstimatedCompletionDate = update.EstimatedCompletionDate
	}
	return nil
}

func (f *fakeRequestRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeRequestRepo) Stats(ctx context.Context) (*models.ServiceStats, error) {
	stats := &models.ServiceStats{ByStatus: map[string]int{}, ByServiceType: map[string]int{}, ByPriority: map[string]int{}}
	for _, req := range f.requests {
		stats.Total++
		stats.ByStatus[string(req.Status)]++
		stats.ByServiceType[string(req.ServiceType)]++
		stats.ByPriority[string(req.Priority)]++
	}
	return stats, nil
}

type fakeAuditor struct {
	logs []*models.AuditLog
}

func (f *fakeAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeNotifier struct {
	submitted     []*models.ServiceRequest
	statusChanges []*models.ServiceRequest
}

func (f *fakeNotifier) RequestSubmitted(req *models.ServiceRequest) {
	f.submitted = append(f.submitted, req)
}

func (f *fakeNotifier) RequestStatusChanged(req *models.ServiceRequest, note *string) {
	f.statusChanges = append(f.statusChanges, req)
}

type fakeStatsCache struct {
	entries      map[string]interface{}
	invalidation int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: map[string]interface{}{}}
}

func (f *fakeStatsCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if stats, ok := cached.(*models.ServiceStats); ok {
		if target, ok := dest.(*models.ServiceStats); ok {
			*target = *stats
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (f *fakeStatsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeStatsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.invalidation++
	f.entries = map[string]interface{}{}
	return nil
}

func newRequestService(repo *fakeRequestRepo, auditor *fakeAuditor, notifier *fakeNotifier, cache *fakeStatsCache) *ServiceRequestService {
	return NewServiceRequestService(repo, auditor, notifier, cache, nil, nil, time.Minute)
}

func validSubmission() models.SubmitServiceRequestRequest {
	return models.SubmitServiceRequestRequest{
		Name:        "Asha Rao",
		Email:       "asha@example.com",
		Phone:       "9900112233",
		ServiceType: models.ServiceGSTRegistration,
	}
}

func TestSubmitCreatesPendingRequestWithEmptyHistory(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	svc := newRequestService(repo, &fakeAuditor{}, notifier, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, models.PriorityMedium, req.Priority)
	assert.Nil(t, req.UserID)

	detail, err := svc.GetDetail(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.StatusHistory)
	assert.Empty(t, detail.Documents)
	assert.Len(t, notifier.submitted, 1)
}

func TestSubmitRejectsUnknownServiceType(t *testing.T) {
	svc := newRequestService(newFakeRequestRepo(), &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	payload := validSubmission()
	payload.ServiceType = "tax-magic"
	_, err := svc.Submit(context.Background(), payload, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetOwnHidesForeignRequests(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	owner := "user-1"
	req, err := svc.Submit(context.Background(), validSubmission(), &owner)
	require.NoError(t, err)

	_, err = svc.GetOwn(context.Background(), req.ID, "stranger")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	detail, err := svc.GetOwn(context.Background(), req.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, req.ID, detail.ID)
}

func TestUpdateDetailsRejectsMalformedAssignee(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	assignee := "not-a-uuid"
	_, err = svc.UpdateDetails(context.Background(), req.ID, models.UpdateRequestDetailsRequest{AssignedTo: &assignee})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	detail, err := svc.GetDetail(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.AssignedTo)
}

func TestTrackProjectionOmitsAdminNotes(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	notes := "internal only"
	_, err = svc.UpdateDetails(context.Background(), req.ID, models.UpdateRequestDetailsRequest{AdminNotes: &notes})
	require.NoError(t, err)

	view, err := svc.Track(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, view.ID)
	assert.Equal(t, models.StatusPending, view.Status)

	detail, err := svc.GetDetail(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.AdminNotes)
	assert.Equal(t, notes, *detail.AdminNotes)
}

func TestTrackUnknownReference(t *testing.T) {
	svc := newRequestService(newFakeRequestRepo(), &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	_, err := svc.Track(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachDocumentAppendsInOrder(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	owner := "user-1"
	req, err := svc.Submit(context.Background(), validSubmission(), &owner)
	require.NoError(t, err)

	_, err = svc.AttachDocument(context.Background(), req.ID, owner, false, models.AttachDocumentRequest{Name: "pan.pdf", URL: "https://files/pan.pdf"})
	require.NoError(t, err)
	detail, err := svc.AttachDocument(context.Background(), req.ID, owner, false, models.AttachDocumentRequest{Name: "gst.pdf", URL: "https://files/gst.pdf"})
	require.NoError(t, err)

	require.Len(t, detail.Documents, 2)
	assert.Equal(t, "pan.pdf", detail.Documents[0].Name)
	assert.Equal(t, 1, detail.Documents[0].Position)
	assert.Equal(t, "gst.pdf", detail.Documents[1].Name)
	assert.Equal(t, 2, detail.Documents[1].Position)
}

func TestAttachDocumentStrangerIsForbidden(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	owner := "user-1"
	req, err := svc.Submit(context.Background(), validSubmission(), &owner)
	require.NoError(t, err)

	_, err = svc.AttachDocument(context.Background(), req.ID, "stranger", false, models.AttachDocumentRequest{Name: "pan.pdf", URL: "https://files/pan.pdf"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	detail, err := svc.GetDetail(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Documents)
}

func TestAttachDocumentUnknownRequestIsNotFound(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	_, err := svc.AttachDocument(context.Background(), "no-such-id", "user-1", false, models.AttachDocumentRequest{Name: "pan.pdf", URL: "https://files/pan.pdf"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTransitionStatusAppendsHistoryAndNotifies(t *testing.T) {
	repo := newFakeRequestRepo()
	auditor := &fakeAuditor{}
	notifier := &fakeNotifier{}
	svc := newRequestService(repo, auditor, notifier, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	note := "documents verified"
	detail, err := svc.TransitionStatus(context.Background(), req.ID, "admin-1", models.TransitionStatusRequest{Status: models.StatusInProgress, Note: &note})
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, detail.Status)
	require.Len(t, detail.StatusHistory, 1)
	assert.Equal(t, models.StatusInProgress, detail.StatusHistory[0].Status)
	assert.Equal(t, "admin-1", detail.StatusHistory[0].UpdatedBy)
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, models.AuditActionStatusChange, auditor.logs[0].Action)
	assert.Len(t, notifier.statusChanges, 1)
}

func TestTransitionStatusCompletedDateIsSticky(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	detail, err := svc.TransitionStatus(context.Background(), req.ID, "admin-1", models.TransitionStatusRequest{Status: models.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, detail.CompletedDate)
	firstCompleted := *detail.CompletedDate

	detail, err = svc.TransitionStatus(context.Background(), req.ID, "admin-1", models.TransitionStatusRequest{Status: models.StatusInProgress})
	require.NoError(t, err)
	require.NotNil(t, detail.CompletedDate)
	assert.Equal(t, firstCompleted, *detail.CompletedDate)

	detail, err = svc.TransitionStatus(context.Background(), req.ID, "admin-1", models.TransitionStatusRequest{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, firstCompleted, *detail.CompletedDate)
	assert.Len(t, detail.StatusHistory, 3)
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	_, err = svc.TransitionStatus(context.Background(), req.ID, "admin-1", models.TransitionStatusRequest{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	detail, err := svc.GetDetail(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.StatusHistory)
}

func TestStatsServedFromCache(t *testing.T) {
	repo := newFakeRequestRepo()
	cache := newFakeStatsCache()
	svc := newRequestService(repo, &fakeAuditor{}, &fakeNotifier{}, cache)

	_, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	// A second submission invalidates, a second read repopulates.
	_, err = svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cache.invalidation, 2)

	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cached.Total)
}

func TestDeleteRecordsAudit(t *testing.T) {
	repo := newFakeRequestRepo()
	auditor := &fakeAuditor{}
	svc := newRequestService(repo, auditor, &fakeNotifier{}, newFakeStatsCache())

	req, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), req.ID, "admin-1"))
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, models.AuditActionRequestDelete, auditor.logs[0].Action)

	err = svc.Delete(context.Background(), req.ID, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
