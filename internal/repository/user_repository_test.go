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

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRowColumns() []string {
	return []string{"id", "email", "password_hash", "name", "phone", "address", "role", "active", "last_login",
		"reset_token_hash", "reset_token_expires", "created_at", "updated_at"}
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns()).
		AddRow("user-1", "asha@example.com", "hash", "Asha Rao", "9900112233", nil, "user", true, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT id, email, password_hash, .+ FROM users WHERE LOWER\(email\) = LOWER\(\$1\) LIMIT 1`).
		WithArgs("Asha@Example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Asha@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailMissing(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, email, password_hash, .+ FROM users WHERE LOWER\(email\) = LOWER\(\$1\) LIMIT 1`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "asha@example.com", PasswordHash: "hash", Name: "Asha Rao", Phone: "9900112233", Role: models.RoleUser, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryList(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns()).
		AddRow("user-1", "asha@example.com", "hash", "Asha Rao", "9900112233", nil, "user", true, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT id, email, password_hash, .+ FROM users WHERE 1=1 AND role = \$1 ORDER BY created_at DESC LIMIT 10 OFFSET 0`).
		WithArgs(models.RoleUser).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE 1=1 AND role = \$1`).
		WithArgs(models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	role := models.RoleUser
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateRoleAndActiveMissing(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET role = \$2, active = \$3, updated_at = \$4 WHERE id = \$1`).
		WithArgs("missing", models.RoleAdmin, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRoleAndActive(context.Background(), "missing", models.RoleAdmin, true, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokenLifecycle(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "user-1", Token: "opaque", ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}).
		AddRow(token.ID, "user-1", "opaque", now.Add(time.Hour), now, false, nil, "", "")
	mock.ExpectQuery(`SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent\s+FROM refresh_tokens WHERE token = \$1 LIMIT 1`).
		WithArgs("opaque").
		WillReturnRows(rows)

	stored, err := repo.FindRefreshToken(context.Background(), "opaque")
	require.NoError(t, err)
	assert.False(t, stored.Revoked)

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = \$2 WHERE id = \$1`).
		WithArgs(stored.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RevokeRefreshToken(context.Background(), stored.ID, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByResetToken(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	hash := "token-hash"
	expires := now.Add(time.Hour)
	rows := sqlmock.NewRows(userRowColumns()).
		AddRow("user-1", "asha@example.com", "hash", "Asha Rao", "9900112233", nil, "user", true, nil, &hash, &expires, now, now)
	mock.ExpectQuery(`SELECT id, email, password_hash, .+ FROM users WHERE reset_token_hash = \$1 AND reset_token_expires > \$2 LIMIT 1`).
		WithArgs(hash, sqlmock.AnyArg()).
		WillReturnRows(rows)

	user, err := repo.FindByResetToken(context.Background(), hash, now)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
