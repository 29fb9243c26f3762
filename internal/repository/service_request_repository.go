package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kioskpe/letslegal-api/internal/models"
)

// ServiceRequestRepository manages persistence for service requests and their
// append-only document and status-history logs.
type ServiceRequestRepository struct {
	db *sqlx.DB
}

// NewServiceRequestRepository constructs a ServiceRequestRepository.
func NewServiceRequestRepository(db *sqlx.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

const requestColumns = `r.id, r.user_id, r.name, r.email, r.phone, r.service_type, r.business_name, r.business_type, r.description,
        r.status, r.admin_notes, r.priority, r.assigned_to, r.estimated_completion_date, r.completed_date, r.created_at, r.updated_at`

// Create inserts a new service request. Status and priority defaults are the
// caller's responsibility.
func (r *ServiceRequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO service_requests (id, user_id, name, email, phone, service_type, business_name, business_type, description,
        status, admin_notes, priority, assigned_to, estimated_completion_date, completed_date, created_at, updated_at)
        VALUES (:id, :user_id, :name, :email, :phone, :service_type, :business_name, :business_type, :description,
        :status, :admin_notes, :priority, :assigned_to, :estimated_completion_date, :completed_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	return nil
}

// List returns requests matching the provided filters, newest first.
func (r *ServiceRequestRepository) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, int, error) {
	base := "FROM service_requests r"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ServiceType != nil {
		conditions = append(conditions, fmt.Sprintf("r.service_type = $%d", len(args)+1))
		args = append(args, *filter.ServiceType)
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("r.priority = $%d", len(args)+1))
		args = append(args, *filter.Priority)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.name) LIKE $%d OR LOWER(r.email) LIKE $%d OR LOWER(r.business_name) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s ORDER BY r.created_at DESC LIMIT %d OFFSET %d", requestColumns, base, limit, offset)

	var requests []models.ServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}
	return requests, total, nil
}

// FindByID fetches a request detail, including the document and status logs.
func (r *ServiceRequestRepository) FindByID(ctx context.Context, id string) (*models.ServiceRequestDetail, error) {
	return r.findDetail(ctx, "r.id = $1", id)
}

// FindByIDForOwner fetches a request detail only when the given user owns it.
// A mismatch is indistinguishable from absence: both return sql.ErrNoRows.
func (r *ServiceRequestRepository) FindByIDForOwner(ctx context.Context, id, userID string) (*models.ServiceRequestDetail, error) {
	return r.findDetail(ctx, "r.id = $1 AND r.user_id = $2", id, userID)
}

func (r *ServiceRequestRepository) findDetail(ctx context.Context, where string, args ...interface{}) (*models.ServiceRequestDetail, error) {
	query := fmt.Sprintf(`SELECT %s, o.name AS owner_name, o.email AS owner_email, a.name AS assigned_to_name
        FROM service_requests r
        LEFT JOIN users o ON o.id = r.user_id
        LEFT JOIN users a ON a.id = r.assigned_to
        WHERE %s`, requestColumns, where)

	var detail models.ServiceRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}

	documents, err := r.loadDocuments(ctx, detail.ID)
	if err != nil {
		return nil, err
	}
	detail.Documents = documents

	history, err := r.loadStatusHistory(ctx, detail.ID)
	if err != nil {
		return nil, err
	}
	detail.StatusHistory = history

	return &detail, nil
}

func (r *ServiceRequestRepository) loadDocuments(ctx context.Context, requestID string) ([]models.RequestDocument, error) {
	const query = `SELECT id, request_id, name, url, position, uploaded_at
        FROM service_request_documents WHERE request_id = $1 ORDER BY position ASC`
	documents := []models.RequestDocument{}
	if err := r.db.SelectContext(ctx, &documents, query, requestID); err != nil {
		return nil, fmt.Errorf("load request documents: %w", err)
	}
	return documents, nil
}

func (r *ServiceRequestRepository) loadStatusHistory(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	const query = `SELECT h.id, h.request_id, h.status, h.note, h.updated_by, u.name AS updated_by_name, h.updated_at
        FROM service_request_status_history h
        LEFT JOIN users u ON u.id = h.updated_by
        WHERE h.request_id = $1 ORDER BY h.updated_at ASC, h.id ASC`
	history := []models.StatusHistoryEntry{}
	if err := r.db.SelectContext(ctx, &history, query, requestID); err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return history, nil
}

// AppendDocument appends one attachment at the tail of the request's document
// log inside a single transaction. Returns sql.ErrNoRows when the request is
// absent.
func (r *ServiceRequestRepository) AppendDocument(ctx context.Context, doc *models.RequestDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append document: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `UPDATE service_requests SET updated_at = $2 WHERE id = $1`, doc.RequestID, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("touch request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const insert = `INSERT INTO service_request_documents (id, request_id, name, url, position, uploaded_at)
        VALUES ($1, $2, $3, $4,
            (SELECT COALESCE(MAX(position), 0) + 1 FROM service_request_documents WHERE request_id = $2),
            $5)`
	if _, err := tx.ExecContext(ctx, insert, doc.ID, doc.RequestID, doc.Name, doc.URL, doc.UploadedAt); err != nil {
		return fmt.Errorf("append document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append document: %w", err)
	}
	return nil
}

// AppendStatus records a status transition: one history row plus the current
// status on the request, in one transaction. The first transition to completed
// stamps completed_date; later transitions never clear it.
func (r *ServiceRequestRepository) AppendStatus(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE service_requests
        SET status = $2,
            updated_at = $3,
            completed_date = CASE WHEN $2 = 'completed' THEN COALESCE(completed_date, $3) ELSE completed_date END
        WHERE id = $1`
	result, err := tx.ExecContext(ctx, update, entry.RequestID, entry.Status, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const insert = `INSERT INTO service_request_status_history (id, request_id, status, note, updated_by, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insert, entry.ID, entry.RequestID, entry.Status, entry.Note, entry.UpdatedBy, entry.UpdatedAt); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status transition: %w", err)
	}
	return nil
}

// UpdateAdminFields applies a partial update of the administrative metadata.
// Fields left nil are untouched. Returns sql.ErrNoRows when the request is
// absent.
func (r *ServiceRequestRepository) UpdateAdminFields(ctx context.Context, id string, update models.ServiceRequestAdminUpdate) error {
	sets := []string{}
	var args []interface{}

	if update.Priority != nil {
		args = append(args, *update.Priority)
		sets = append(sets, fmt.Sprintf("priority = $%d", len(args)))
	}
	if update.AssignedTo != nil {
		args = append(args, *update.AssignedTo)
		sets = append(sets, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if update.AdminNotes != nil {
		args = append(args, *update.AdminNotes)
		sets = append(sets, fmt.Sprintf("admin_notes = $%d", len(args)))
	}
	if update.EstimatedCompletionDate != nil {
		args = append(args, *update.EstimatedCompletionDate)
		sets = append(sets, fmt.Sprintf("estimated_completion_date = $%d", len(args)))
	}
	if len(sets) == 0 {
		// Nothing to change beyond the touch.
		sets = append(sets, "id = id")
	}

	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE service_requests SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update request details: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request details: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a request permanently. Document and history rows cascade.
func (r *ServiceRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete service request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// Stats aggregates request counts by status, service type and priority.
func (r *ServiceRequestRepository) Stats(ctx context.Context) (*models.ServiceStats, error) {
	stats := &models.ServiceStats{
		ByStatus:      map[string]int{},
		ByServiceType: map[string]int{},
		ByPriority:    map[string]int{},
	}

	if err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM service_requests`); err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}

	groups := []struct {
		column string
		dest   map[string]int
	}{
		{"status", stats.ByStatus},
		{"service_type", stats.ByServiceType},
		{"priority", stats.ByPriority},
	}
	for _, group := range groups {
		query := fmt.Sprintf(`SELECT %s AS key, COUNT(*) AS count FROM service_requests GROUP BY %s`, group.column, group.column)
		var rows []countRow
		if err := r.db.SelectContext(ctx, &rows, query); err != nil {
			return nil, fmt.Errorf("aggregate requests by %s: %w", group.column, err)
		}
		for _, row := range rows {
			group.dest[row.Key] = row.Count
		}
	}

	return stats, nil
}

// CountAll returns the total number of requests.
func (r *ServiceRequestRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM service_requests`); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return total, nil
}

// Recent returns the newest requests for the dashboard.
func (r *ServiceRequestRepository) Recent(ctx context.Context, limit int) ([]models.ServiceRequest, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM service_requests r ORDER BY r.created_at DESC LIMIT %d", requestColumns, limit)
	var requests []models.ServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("recent requests: %w", err)
	}
	return requests, nil
}
