package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kioskpe/letslegal-api/internal/models"
	"github.com/kioskpe/letslegal-api/internal/service"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
	"github.com/kioskpe/letslegal-api/pkg/response"
)

// ServiceRequestHandler exposes the service request lifecycle endpoints.
type ServiceRequestHandler struct {
	requests *service.ServiceRequestService
	exports  *service.ExportService
}

// NewServiceRequestHandler constructs ServiceRequestHandler.
func NewServiceRequestHandler(requests *service.ServiceRequestService, exports *service.ExportService) *ServiceRequestHandler {
	return &ServiceRequestHandler{requests: requests, exports: exports}
}

func requestFilterFromQuery(c *gin.Context) models.ServiceRequestFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filter := models.ServiceRequestFilter{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
	if v := c.Query("status"); v != "" {
		status := models.RequestStatus(v)
		filter.Status = &status
	}
	if v := c.Query("service_type"); v != "" {
		serviceType := models.ServiceType(v)
		filter.ServiceType = &serviceType
	}
	if v := c.Query("priority"); v != "" {
		priority := models.RequestPriority(v)
		filter.Priority = &priority
	}
	return filter
}

// Submit godoc
// @Summary Submit a service request
// @Description Accepts submissions from guests and signed-in customers alike.
// @Tags Services
// @Accept json
// @Produce json
// @Param payload body models.SubmitServiceRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /services/request [post]
func (h *ServiceRequestHandler) Submit(c *gin.Context) {
	var req models.SubmitServiceRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var userID *string
	if claims := claimsFromContext(c); claims != nil {
		userID = &claims.UserID
	}

	created, err := h.requests.Submit(c.Request.Context(), req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created, "service request submitted")
}

// ListOwn godoc
// @Summary List the caller's service requests
// @Tags Services
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/my-requests [get]
func (h *ServiceRequestHandler) ListOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, pagination, err := h.requests.ListOwn(c.Request.Context(), claims.UserID, requestFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// GetOwn godoc
// @Summary Fetch one of the caller's service requests
// @Tags Services
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/my-requests/{id} [get]
func (h *ServiceRequestHandler) GetOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.requests.GetOwn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Track godoc
// @Summary Track a service request by reference
// @Description Public progress view. Internal notes are never included.
// @Tags Services
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /services/track/{id} [get]
func (h *ServiceRequestHandler) Track(c *gin.Context) {
	view, err := h.requests.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// AttachDocument godoc
// @Summary Attach a document to a service request
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.AttachDocumentRequest true "Document payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/request/{id}/document [post]
func (h *ServiceRequestHandler) AttachDocument(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.requests.AttachDocument(c.Request.Context(), c.Param("id"), claims.UserID, claims.IsAdmin(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListAll godoc
// @Summary List all service requests
// @Tags Admin
// @Produce json
// @Param status query string false "Status filter"
// @Param service_type query string false "Service type filter"
// @Param priority query string false "Priority filter"
// @Param search query string false "Search by name, email or reference"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/all [get]
func (h *ServiceRequestHandler) ListAll(c *gin.Context) {
	requests, pagination, err := h.requests.ListAll(c.Request.Context(), requestFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// GetDetail godoc
// @Summary Fetch a service request with documents and history
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/request/{id} [get]
func (h *ServiceRequestHandler) GetDetail(c *gin.Context) {
	detail, err := h.requests.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// TransitionStatus godoc
// @Summary Move a service request to a new status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.TransitionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/request/{id}/status [put]
func (h *ServiceRequestHandler) TransitionStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.requests.TransitionStatus(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateDetails godoc
// @Summary Update administrative fields of a service request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.UpdateRequestDetailsRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/request/{id} [put]
func (h *ServiceRequestHandler) UpdateDetails(c *gin.Context) {
	var req models.UpdateRequestDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.requests.UpdateDetails(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a service request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/request/{id} [delete]
func (h *ServiceRequestHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.requests.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "service request deleted")
}

// Stats godoc
// @Summary Aggregate service request statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/stats [get]
func (h *ServiceRequestHandler) Stats(c *gin.Context) {
	stats, err := h.requests.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Generate a CSV or PDF export of service requests
// @Tags Admin
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/export [get]
func (h *ServiceRequestHandler) Export(c *gin.Context) {
	result, err := h.exports.Generate(c.Request.Context(), requestFilterFromQuery(c), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadExport godoc
// @Summary Download a previously generated export
// @Tags Admin
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /services/export/download [get]
func (h *ServiceRequestHandler) DownloadExport(c *gin.Context) {
	file, fileName, err := h.exports.Download(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(fileName))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, file)
}
