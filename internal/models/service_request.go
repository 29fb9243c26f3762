package models

import "time"

// ServiceType enumerates the services customers can request. The list is the
// single source of truth consumed by both validation and client filter options.
type ServiceType string

const (
	ServiceITRFiling           ServiceType = "itr-filing"
	ServiceCompanyRegistration ServiceType = "company-registration"
	ServiceNGORegistration     ServiceType = "ngo-registration"
	ServiceGSTRegistration     ServiceType = "gst-registration"
	ServiceGSTFiling           ServiceType = "gst-filing"
	ServiceLegalConsultation   ServiceType = "legal-consultation"
	ServiceContractDrafting    ServiceType = "contract-drafting"
	ServiceCompliance          ServiceType = "compliance"
	ServiceOther               ServiceType = "other"
)

// ServiceTypes lists every valid service type.
func ServiceTypes() []ServiceType {
	return []ServiceType{
		ServiceITRFiling,
		ServiceCompanyRegistration,
		ServiceNGORegistration,
		ServiceGSTRegistration,
		ServiceGSTFiling,
		ServiceLegalConsultation,
		ServiceContractDrafting,
		ServiceCompliance,
		ServiceOther,
	}
}

// Valid reports whether the service type is a known value.
func (t ServiceType) Valid() bool {
	for _, known := range ServiceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// BusinessType enumerates legal structures for the requester's business.
type BusinessType string

const (
	BusinessProprietorship BusinessType = "proprietorship"
	BusinessPartnership    BusinessType = "partnership"
	BusinessLLP            BusinessType = "llp"
	BusinessPrivateLimited BusinessType = "private-limited"
	BusinessPublicLimited  BusinessType = "public-limited"
	BusinessNGO            BusinessType = "ngo"
	BusinessTrust          BusinessType = "trust"
	BusinessSociety        BusinessType = "society"
	BusinessOther          BusinessType = "other"
)

// Valid reports whether the business type is a known value.
func (t BusinessType) Valid() bool {
	switch t {
	case BusinessProprietorship, BusinessPartnership, BusinessLLP,
		BusinessPrivateLimited, BusinessPublicLimited, BusinessNGO,
		BusinessTrust, BusinessSociety, BusinessOther:
		return true
	}
	return false
}

// RequestStatus enumerates the service-request lifecycle states. Any status may
// move to any other status; completed and rejected are terminal by convention
// only.
type RequestStatus string

const (
	StatusPending           RequestStatus = "pending"
	StatusUnderReview       RequestStatus = "under-review"
	StatusDocumentsRequired RequestStatus = "documents-required"
	StatusInProgress        RequestStatus = "in-progress"
	StatusCompleted         RequestStatus = "completed"
	StatusRejected          RequestStatus = "rejected"
)

// RequestStatuses lists every valid request status.
func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		StatusPending,
		StatusUnderReview,
		StatusDocumentsRequired,
		StatusInProgress,
		StatusCompleted,
		StatusRejected,
	}
}

// Valid reports whether the status is a known value.
func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// RequestPriority enumerates handling priorities.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityMedium RequestPriority = "medium"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// Valid reports whether the priority is a known value.
func (p RequestPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ServiceRequest is the unit of work a customer submits. Its ID doubles as the
// public reference used for unauthenticated tracking.
type ServiceRequest struct {
	ID                      string           `db:"id" json:"id"`
	UserID                  *string          `db:"user_id" json:"user_id,omitempty"`
	Name                    string           `db:"name" json:"name"`
	Email                   string           `db:"email" json:"email"`
	Phone                   string           `db:"phone" json:"phone"`
	ServiceType             ServiceType      `db:"service_type" json:"service_type"`
	BusinessName            *string          `db:"business_name" json:"business_name,omitempty"`
	BusinessType            *BusinessType    `db:"business_type" json:"business_type,omitempty"`
	Description             *string          `db:"description" json:"description,omitempty"`
	Status                  RequestStatus    `db:"status" json:"status"`
	AdminNotes              *string          `db:"admin_notes" json:"admin_notes,omitempty"`
	Priority                RequestPriority  `db:"priority" json:"priority"`
	AssignedTo              *string          `db:"assigned_to" json:"assigned_to,omitempty"`
	EstimatedCompletionDate *time.Time       `db:"estimated_completion_date" json:"estimated_completion_date,omitempty"`
	CompletedDate           *time.Time       `db:"completed_date" json:"completed_date,omitempty"`
	CreatedAt               time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time        `db:"updated_at" json:"updated_at"`
}

// RequestDocument is one attachment on a request. The sequence is append-only
// and position preserves upload order.
type RequestDocument struct {
	ID         string    `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"-"`
	Name       string    `db:"name" json:"name"`
	URL        string    `db:"url" json:"url"`
	Position   int       `db:"position" json:"position"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// StatusHistoryEntry is one row of the append-only status audit trail. The
// initial pending state is not logged; only explicit transitions append.
type StatusHistoryEntry struct {
	ID            string        `db:"id" json:"id"`
	RequestID     string        `db:"request_id" json:"-"`
	Status        RequestStatus `db:"status" json:"status"`
	Note          *string       `db:"note" json:"note,omitempty"`
	UpdatedBy     string        `db:"updated_by" json:"updated_by"`
	UpdatedByName *string       `db:"updated_by_name" json:"updated_by_name,omitempty"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// ServiceRequestDetail is a request with its owner/assignee summary and the
// full document and status-history logs.
type ServiceRequestDetail struct {
	ServiceRequest
	OwnerName      *string              `db:"owner_name" json:"owner_name,omitempty"`
	OwnerEmail     *string              `db:"owner_email" json:"owner_email,omitempty"`
	AssignedToName *string              `db:"assigned_to_name" json:"assigned_to_name,omitempty"`
	Documents      []RequestDocument    `json:"documents"`
	StatusHistory  []StatusHistoryEntry `json:"status_history"`
}

// ServiceRequestFilter captures list criteria for request queries.
type ServiceRequestFilter struct {
	UserID      string
	Status      *RequestStatus
	ServiceType *ServiceType
	Priority    *RequestPriority
	Search      string
	Page        int
	Limit       int
}

// ServiceRequestAdminUpdate is a partial update of administrative metadata.
// Nil fields are left unchanged.
type ServiceRequestAdminUpdate struct {
	Priority                *RequestPriority
	AssignedTo              *string
	AdminNotes              *string
	EstimatedCompletionDate *time.Time
}

// SubmitServiceRequestRequest is the public submission payload. Guests may
// submit without an account; authenticated callers get the request linked to
// their user ID.
type SubmitServiceRequestRequest struct {
	Name         string        `json:"name" validate:"required"`
	Email        string        `json:"email" validate:"required,email"`
	Phone        string        `json:"phone" validate:"required"`
	ServiceType  ServiceType   `json:"service_type" validate:"required"`
	BusinessName *string       `json:"business_name"`
	BusinessType *BusinessType `json:"business_type"`
	Description  *string       `json:"description"`
}

// AttachDocumentRequest appends one attachment to a request.
type AttachDocumentRequest struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

// TransitionStatusRequest moves a request to a new lifecycle state.
type TransitionStatusRequest struct {
	Status RequestStatus `json:"status" validate:"required"`
	Note   *string       `json:"note"`
}

// UpdateRequestDetailsRequest is the admin metadata update payload. Omitted
// fields are left unchanged.
type UpdateRequestDetailsRequest struct {
	Priority                *RequestPriority `json:"priority"`
	AssignedTo              *string          `json:"assigned_to"`
	AdminNotes              *string          `json:"admin_notes"`
	EstimatedCompletionDate *time.Time       `json:"estimated_completion_date"`
}

// ServiceStats aggregates request counts for the admin dashboard.
type ServiceStats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	ByServiceType map[string]int `json:"by_service_type"`
	ByPriority    map[string]int `json:"by_priority"`
}
