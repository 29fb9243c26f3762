package models

import "time"

// InquirySubject enumerates contact form subjects.
type InquirySubject string

const (
	SubjectGeneral    InquirySubject = "general"
	SubjectLegal      InquirySubject = "legal"
	SubjectBusiness   InquirySubject = "business"
	SubjectCompliance InquirySubject = "compliance"
	SubjectSupport    InquirySubject = "support"
)

// Valid reports whether the subject is a known value.
func (s InquirySubject) Valid() bool {
	switch s {
	case SubjectGeneral, SubjectLegal, SubjectBusiness, SubjectCompliance, SubjectSupport:
		return true
	}
	return false
}

// InquiryStatus enumerates the handling states of an inquiry.
type InquiryStatus string

const (
	InquiryPending   InquiryStatus = "pending"
	InquiryResponded InquiryStatus = "responded"
	InquiryClosed    InquiryStatus = "closed"
)

// Valid reports whether the status is a known value.
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryPending, InquiryResponded, InquiryClosed:
		return true
	}
	return false
}

// ContactInquiry is a message submitted through the public contact form.
type ContactInquiry struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Phone     string         `db:"phone" json:"phone"`
	Subject   InquirySubject `db:"subject" json:"subject"`
	Message   string         `db:"message" json:"message"`
	Status    InquiryStatus  `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// SubmitInquiryRequest is the public contact form payload.
type SubmitInquiryRequest struct {
	Name    string         `json:"name" validate:"required"`
	Email   string         `json:"email" validate:"required,email"`
	Phone   string         `json:"phone" validate:"required"`
	Subject InquirySubject `json:"subject" validate:"required"`
	Message string         `json:"message" validate:"required"`
}

// UpdateInquiryStatusRequest moves an inquiry between handling states.
type UpdateInquiryStatusRequest struct {
	Status InquiryStatus `json:"status" validate:"required"`
}
