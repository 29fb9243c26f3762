package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kioskpe/letslegal-api/internal/models"
	"github.com/kioskpe/letslegal-api/internal/service"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
	"github.com/kioskpe/letslegal-api/pkg/response"
)

// ContactHandler exposes the contact inquiry endpoints.
type ContactHandler struct {
	contacts *service.ContactService
}

// NewContactHandler constructs ContactHandler.
func NewContactHandler(contacts *service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// Submit godoc
// @Summary Submit a contact inquiry
// @Tags Contact
// @Accept json
// @Produce json
// @Param payload body models.SubmitInquiryRequest true "Inquiry payload"
// @Success 201 {object} response.Envelope
// @Router /contact/inquiry [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req models.SubmitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	inquiry, err := h.contacts.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inquiry, "inquiry received")
}

// List godoc
// @Summary List contact inquiries
// @Tags Admin
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/inquiries [get]
func (h *ContactHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var status *models.InquiryStatus
	if v := c.Query("status"); v != "" {
		s := models.InquiryStatus(v)
		status = &s
	}

	inquiries, pagination, err := h.contacts.List(c.Request.Context(), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inquiries, pagination)
}

// UpdateStatus godoc
// @Summary Update an inquiry's status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Inquiry ID"
// @Param payload body models.UpdateInquiryStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/inquiries/{id}/status [put]
func (h *ContactHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateInquiryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.contacts.UpdateStatus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "inquiry updated")
}
