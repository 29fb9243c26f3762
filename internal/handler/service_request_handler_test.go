package handler

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/kioskpe/letslegal-api/internal/middleware"
	"github.com/kioskpe/letslegal-api/internal/models"
	"github.com/kioskpe/letslegal-api/internal/service"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
)

type requestRepoStub struct {
	requests map[string]*models.ServiceRequest
	history  map[string][]models.StatusHistoryEntry
	docs     map[string][]models.RequestDocument
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{
		requests: map[string]*models.ServiceRequest{},
		history:  map[string][]models.StatusHistoryEntry{},
		docs:     map[string][]models.RequestDocument{},
	}
}

func (r *requestRepoStub) Create(ctx context.Context, req *models.ServiceRequest) error {
	req.ID = fmt.Sprintf("req-%d", len(r.requests)+1)
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *requestRepoStub) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, int, error) {
	var out []models.ServiceRequest
	for _, req := range r.requests {
		if filter.UserID != "" && (req.UserID == nil || *req.UserID != filter.UserID) {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (r *requestRepoStub) FindByID(ctx context.Context, id string) (*models.ServiceRequestDetail, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ServiceRequestDetail{
		ServiceRequest: *req,
		Documents:      append([]models.RequestDocument{}, r.docs[id]...),
		StatusHistory:  append([]models.StatusHistoryEntry{}, r.history[id]...),
	}, nil
}

func (r *requestRepoStub) FindByIDForOwner(ctx context.Context, id, userID string) (*models.ServiceRequestDetail, error) {
	req, ok := r.requests[id]
	if !ok || req.UserID == nil || *req.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(ctx, id)
}

func (r *requestRepoStub) AppendDocument(ctx context.Context, doc *models.RequestDocument) error {
	if _, ok := r.requests[doc.RequestID]; !ok {
		return sql.ErrNoRows
	}
	doc.ID = fmt.Sprintf("doc-%d", len(r.docs[doc.RequestID])+1)
	doc.Position = len(r.docs[doc.RequestID]) + 1
	doc.UploadedAt = time.Now()
	r.docs[doc.RequestID] = append(r.docs[doc.RequestID], *doc)
	return nil
}

func (r *requestRepoStub) AppendStatus(ctx context.Context, entry *models.StatusHistoryEntry) error {
	req, ok := r.requests[entry.RequestID]
	if !ok {
		return sql.ErrNoRows
	}
	entry.ID = fmt.Sprintf("hist-%d", len(r.history[entry.RequestID])+1)
	entry.UpdatedAt = time.Now()
	req.Status = entry.Status
	if entry.Status == models.StatusCompleted && req.CompletedDate == nil {
		now := entry.UpdatedAt
		req.CompletedDate = &now
	}
	r.history[entry.RequestID] = append(r.history[entry.RequestID], *entry)
	return nil
}

func (r *requestRepoStub) UpdateAdminFields(ctx context.Context, id string, update models.ServiceRequestAdminUpdate) error {
	req, ok := r.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Priority != nil {
		req.Priority = *update.Priority
	}
	if update.AdminNotes != nil {
		req.AdminNotes = update.AdminNotes
	}
	return nil
}

func (r *requestRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.requests, id)
	return nil
}

func (r *requestRepoStub) Stats(ctx context.Context) (*models.ServiceStats, error) {
	return &models.ServiceStats{Total: len(r.requests), ByStatus: map[string]int{}, ByServiceType: map[string]int{}}, nil
}

type auditorStub struct{ logs []models.AuditLog }

func (a *auditorStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return nil
}

type notifierStub struct{}

func (notifierStub) RequestSubmitted(req *models.ServiceRequest)                   {}
func (notifierStub) RequestStatusChanged(req *models.ServiceRequest, note *string) {}

type noopCacheStub struct{}

func (noopCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}
func (noopCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (noopCacheStub) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func buildRequestRouter(repo *requestRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewServiceRequestService(repo, &auditorStub{}, notifierStub{}, noopCacheStub{}, nil, nil, time.Minute)
	h := NewServiceRequestHandler(svc, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: c.GetHeader("X-Test-User"),
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	router.POST("/api/services/request", h.Submit)
	router.GET("/api/services/track/:id", h.Track)
	router.GET("/api/services/my-requests", h.ListOwn)
	router.GET("/api/services/my-requests/:id", h.GetOwn)
	router.POST("/api/services/request/:id/document", h.AttachDocument)

	admin := router.Group("", internalmiddleware.RequireAdmin())
	admin.GET("/api/services/all", h.ListAll)
	admin.PUT("/api/services/request/:id/status", h.TransitionStatus)
	admin.DELETE("/api/services/request/:id", h.Delete)

	return router
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestServiceRequestRoutes(t *testing.T) {
	repo := newRequestRepoStub()
	router := buildRequestRouter(repo)

	submitBody := `{"name":"Asha Rao","email":"asha@example.com","phone":"+91-9000000001","service_type":"gst-registration","description":"new GST number"}`

	t.Run("guest submission", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/api/services/request", submitBody, nil)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"pending"`)
		require.NotContains(t, resp.Body.String(), `"user_id"`)
	})

	t.Run("authenticated submission links the account", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/api/services/request", submitBody, map[string]string{
			"X-Test-Role": string(models.RoleUser),
			"X-Test-User": "user-1",
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"user_id":"user-1"`)
	})

	t.Run("submission rejects unknown service type", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/api/services/request",
			`{"name":"A","email":"a@example.com","phone":"1","service_type":"time-travel-visa"}`, nil)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("public tracking hides internal notes", func(t *testing.T) {
		notes := "call the client"
		repo.requests["req-1"].AdminNotes = &notes

		resp := doRequest(router, http.MethodGet, "/api/services/track/req-1", "", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"pending"`)
		require.NotContains(t, resp.Body.String(), "admin_notes")
		require.NotContains(t, resp.Body.String(), "call the client")
	})

	t.Run("tracking unknown reference", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/api/services/track/no-such-ref", "", nil)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("my requests without claims", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/api/services/my-requests", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("my requests only lists own submissions", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/api/services/my-requests", "", map[string]string{
			"X-Test-Role": string(models.RoleUser),
			"X-Test-User": "user-1",
		})
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"id":"req-2"`)
		require.NotContains(t, resp.Body.String(), `"id":"req-1"`)
	})

	t.Run("stranger cannot attach to someone else's request", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/api/services/request/req-2/document",
			`{"name":"pan.pdf","url":"https://files.example.com/pan.pdf"}`, map[string]string{
				"X-Test-Role": string(models.RoleUser),
				"X-Test-User": "user-99",
			})
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("attaching to an unknown request", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/api/services/request/no-such-ref/document",
			`{"name":"pan.pdf","url":"https://files.example.com/pan.pdf"}`, map[string]string{
				"X-Test-Role": string(models.RoleUser),
				"X-Test-User": "user-99",
			})
		require.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("owner attaches a document", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/api/services/request/req-2/document",
			`{"name":"pan.pdf","url":"https://files.example.com/pan.pdf"}`, map[string]string{
				"X-Test-Role": string(models.RoleUser),
				"X-Test-User": "user-1",
			})
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"name":"pan.pdf"`)
	})

	t.Run("customer cannot list all requests", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/api/services/all", "", map[string]string{
			"X-Test-Role": string(models.RoleUser),
			"X-Test-User": "user-1",
		})
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("admin moves a request through the lifecycle", func(t *testing.T) {
		resp := doRequest(router, http.MethodPut, "/api/services/request/req-1/status",
			`{"status":"in-progress","note":"filing started"}`, map[string]string{
				"X-Test-Role": string(models.RoleAdmin),
				"X-Test-User": "admin-1",
			})
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"in-progress"`)
		require.Contains(t, resp.Body.String(), `"note":"filing started"`)
	})

	t.Run("admin rejects unknown status", func(t *testing.T) {
		resp := doRequest(router, http.MethodPut, "/api/services/request/req-1/status",
			`{"status":"archived"}`, map[string]string{
				"X-Test-Role": string(models.RoleAdmin),
				"X-Test-User": "admin-1",
			})
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("admin deletes a request", func(t *testing.T) {
		resp := doRequest(router, http.MethodDelete, "/api/services/request/req-1", "", map[string]string{
			"X-Test-Role": string(models.RoleAdmin),
			"X-Test-User": "admin-1",
		})
		require.Equal(t, http.StatusOK, resp.Code)
		require.NotContains(t, repo.requests, "req-1")
	})
}
