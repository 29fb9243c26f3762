package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpe/letslegal-api/internal/models"
)

func newContactMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestContactRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newContactMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("INSERT INTO contact_inquiries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inquiry := &models.ContactInquiry{
		Name:    "Asha Rao",
		Email:   "asha@example.com",
		Phone:   "9900112233",
		Subject: models.SubjectLegal,
		Message: "Need help with a vendor agreement",
		Status:  models.InquiryPending,
	}
	require.NoError(t, repo.Create(context.Background(), inquiry))
	assert.NotEmpty(t, inquiry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepositoryList(t *testing.T) {
	db, mock, cleanup := newContactMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "email", "phone", "subject", "message", "status", "created_at"}).
		AddRow("inq-1", "Asha Rao", "asha@example.com", "9900112233", "legal", "Need help", "pending", now)
	mock.ExpectQuery(`SELECT id, name, email, phone, subject, message, status, created_at FROM contact_inquiries WHERE 1=1 AND status = \$1 ORDER BY created_at DESC LIMIT 10 OFFSET 0`).
		WithArgs(models.InquiryPending).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contact_inquiries WHERE 1=1 AND status = \$1`).
		WithArgs(models.InquiryPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.InquiryPending
	inquiries, total, err := repo.List(context.Background(), &status, 1, 10)
	require.NoError(t, err)
	assert.Len(t, inquiries, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newContactMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec(`UPDATE contact_inquiries SET status = \$2 WHERE id = \$1`).
		WithArgs("missing", models.InquiryResponded).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.InquiryResponded)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
