package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/models"
)

func setupRepositoryTest(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func emailRecordColumns() []string {
	return []string{"id", "email", "domain", "mx_records", "mx_scan_status", "batch_id", "created_at"}
}

func TestEmailRecordRepository_CreateBatch(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []*models.EmailRecord{
		{Email: "a@x.com", Domain: "x.com", MxScanStatus: enum.ScanStatusPending, BatchID: "batch_1", CreatedAt: createdAt},
		{Email: "b@y.com", Domain: "y.com", MxScanStatus: enum.ScanStatusPending, BatchID: "batch_1", CreatedAt: createdAt},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "email_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectCommit()

	err := repo.CreateBatch(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), records[0].ID)
	assert.Equal(t, uint64(2), records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRecordRepository_CreateBatch_RollsBackOnError(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	records := []*models.EmailRecord{
		{Email: "a@x.com", Domain: "x.com", MxScanStatus: enum.ScanStatusPending, BatchID: "batch_1", CreatedAt: time.Now()},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "email_records"`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), records)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRecordRepository_CreateBatch_Empty(t *testing.T) {
	db, _ := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	err := repo.CreateBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmailRecordRepository_UpdateDomainResolution(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "email_records" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	rows, err := repo.UpdateDomainResolution(context.Background(), "batch_1", "x.com", enum.ScanStatusCompleted, []string{"10 mx1.x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRecordRepository_UpdateDomainResolution_RejectsPending(t *testing.T) {
	db, _ := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	_, err := repo.UpdateDomainResolution(context.Background(), "batch_1", "x.com", enum.ScanStatusPending, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmailRecordRepository_GetByBatch(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(emailRecordColumns()).
		AddRow(2, "b@y.com", "y.com", nil, "failed", "batch_1", createdAt).
		AddRow(1, "a@x.com", "x.com", `{"10 mx1.x.com","20 mx2.x.com"}`, "completed", "batch_1", createdAt)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "email_records" WHERE batch_id = $1 ORDER BY created_at DESC, id DESC`)).
		WithArgs("batch_1").
		WillReturnRows(rows)

	records, err := repo.GetByBatch(context.Background(), "batch_1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, uint64(2), records[0].ID)
	assert.Equal(t, enum.ScanStatusFailed, records[0].MxScanStatus)
	assert.Empty(t, records[0].MxRecords)

	assert.Equal(t, enum.ScanStatusCompleted, records[1].MxScanStatus)
	assert.Equal(t, []string{"10 mx1.x.com", "20 mx2.x.com"}, []string(records[1].MxRecords))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRecordRepository_GetAll(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "email_records" ORDER BY created_at DESC, id DESC`)).
		WillReturnRows(sqlmock.NewRows(emailRecordColumns()))

	records, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRecordRepository_FindStalePending(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewEmailRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT batch_id, domain FROM "email_records" WHERE mx_scan_status = $1 AND created_at < $2 GROUP BY batch_id, domain`)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "domain"}).
			AddRow("batch_1", "x.com").
			AddRow("batch_2", "y.com"))

	pending, err := repo.FindStalePending(context.Background(), time.Now().Add(-15*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, []models.PendingDomain{
		{BatchID: "batch_1", Domain: "x.com"},
		{BatchID: "batch_2", Domain: "y.com"},
	}, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessUserRepository_GetByEmail_NotFound(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewAccessUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "access_users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	user, err := repo.GetByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessUserRepository_Upsert(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewAccessUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "access_users"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.AccessUser{Name: "Jane", Company: "Acme", Email: "jane@acme.com", VerificationToken: "tok"}
	err := repo.Upsert(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessUserRepository_Upsert_InvalidInput(t *testing.T) {
	db, _ := setupRepositoryTest(t)
	repo := NewAccessUserRepository(db)

	assert.ErrorIs(t, repo.Upsert(context.Background(), nil), ErrInvalidInput)
	assert.ErrorIs(t, repo.Upsert(context.Background(), &models.AccessUser{}), ErrInvalidInput)
}

func TestAccessUserRepository_VerifyByToken(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewAccessUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "access_users" WHERE verification_token = $1 AND is_verified = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "company", "email", "is_verified", "verification_token"}).
			AddRow("acu_1", "Jane", "Acme", "jane@acme.com", false, "tok"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "access_users" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := repo.VerifyByToken(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "jane@acme.com", user.Email)
	assert.True(t, user.IsVerified)
	assert.NotNil(t, user.VerifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessUserRepository_VerifyByToken_Unknown(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewAccessUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "access_users" WHERE verification_token = $1 AND is_verified = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.VerifyByToken(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.VerifyByToken(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessUserRepository_IsVerified(t *testing.T) {
	db, mock := setupRepositoryTest(t)
	repo := NewAccessUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "access_users" WHERE email = $1 AND is_verified = $2`)).
		WithArgs("jane@acme.com", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	verified, err := repo.IsVerified(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	assert.True(t, verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
