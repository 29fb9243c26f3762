package dto

import (
	"time"

	"github.com/kioskpe/letslegal-api/internal/models"
)

// TrackView is the public, unauthenticated projection of a service request.
// Admin notes are never included; the reference ID itself is the capability.
type TrackView struct {
	ID                      string                      `json:"id"`
	Name                    string                      `json:"name"`
	ServiceType             models.ServiceType          `json:"service_type"`
	BusinessName            *string                     `json:"business_name,omitempty"`
	Status                  models.RequestStatus        `json:"status"`
	Priority                models.RequestPriority      `json:"priority"`
	AssignedToName          *string                     `json:"assigned_to_name,omitempty"`
	EstimatedCompletionDate *time.Time                  `json:"estimated_completion_date,omitempty"`
	CompletedDate           *time.Time                  `json:"completed_date,omitempty"`
	Documents               []models.RequestDocument    `json:"documents"`
	StatusHistory           []models.StatusHistoryEntry `json:"status_history"`
	CreatedAt               time.Time                   `json:"created_at"`
	UpdatedAt               time.Time                   `json:"updated_at"`
}

// NewTrackView projects a detail into its public view.
func NewTrackView(detail *models.ServiceRequestDetail) *TrackView {
	return &TrackView{
		ID:                      detail.ID,
		Name:                    detail.Name,
		ServiceType:             detail.ServiceType,
		BusinessName:            detail.BusinessName,
		Status:                  detail.Status,
		Priority:                detail.Priority,
		AssignedToName:          detail.AssignedToName,
		EstimatedCompletionDate: detail.EstimatedCompletionDate,
		CompletedDate:           detail.CompletedDate,
		Documents:               detail.Documents,
		StatusHistory:           detail.StatusHistory,
		CreatedAt:               detail.CreatedAt,
		UpdatedAt:               detail.UpdatedAt,
	}
}

// ExportResult describes a generated export and its signed download link.
type ExportResult struct {
	ExportID    string    `json:"export_id"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	RowCount    int       `json:"row_count"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DashboardResponse aggregates the admin landing page payload.
type DashboardResponse struct {
	Stats          DashboardStats          `json:"stats"`
	RecentUsers    []models.User           `json:"recent_users"`
	RecentRequests []models.ServiceRequest `json:"recent_requests"`
}

// DashboardStats holds the headline counters and breakdowns.
type DashboardStats struct {
	Users                int            `json:"users"`
	ServiceRequests      int            `json:"service_requests"`
	Inquiries            int            `json:"inquiries"`
	StatusBreakdown      map[string]int `json:"status_breakdown"`
	ServiceTypeBreakdown map[string]int `json:"service_type_breakdown"`
	PriorityBreakdown    map[string]int `json:"priority_breakdown"`
}
