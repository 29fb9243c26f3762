package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kioskpe/letslegal-api/internal/models"
)

// ContactRepository provides database access for contact inquiries.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates a new instance of ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a new inquiry.
func (r *ContactRepository) Create(ctx context.Context, inquiry *models.ContactInquiry) error {
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contact_inquiries (id, name, email, phone, subject, message, status, created_at)
        VALUES (:id, :name, :email, :phone, :subject, :message, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inquiry); err != nil {
		return fmt.Errorf("create inquiry: %w", err)
	}
	return nil
}

// List returns inquiries newest first with the matching total, optionally
// filtered by status.
func (r *ContactRepository) List(ctx context.Context, status *models.InquiryStatus, page, limit int) ([]models.ContactInquiry, int, error) {
	base := "FROM contact_inquiries WHERE 1=1"
	var args []interface{}
	if status != nil {
		args = append(args, *status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT id, name, email, phone, subject, message, status, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, limit, offset)
	var inquiries []models.ContactInquiry
	if err := r.db.SelectContext(ctx, &inquiries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inquiries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count inquiries: %w", err)
	}
	return inquiries, total, nil
}

// UpdateStatus moves an inquiry to a new handling state.
func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE contact_inquiries SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update inquiry status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update inquiry status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAll returns the total number of inquiries.
func (r *ContactRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM contact_inquiries`); err != nil {
		return 0, fmt.Errorf("count inquiries: %w", err)
	}
	return total, nil
}
