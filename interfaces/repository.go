package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/models"
)

type EmailRecordRepository interface {
	CreateBatch(ctx context.Context, records []*models.EmailRecord) error
	UpdateDomainResolution(ctx context.Context, batchID, domain string, status enum.ScanStatus, mxRecords []string) (int64, error)
	GetByBatch(ctx context.Context, batchID string) ([]*models.EmailRecord, error)
	GetAll(ctx context.Context) ([]*models.EmailRecord, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.PendingDomain, error)
}

type AccessUserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.AccessUser, error)
	Upsert(ctx context.Context, user *models.AccessUser) error
	VerifyByToken(ctx context.Context, token string) (*models.AccessUser, error)
	IsVerified(ctx context.Context, email string) (bool, error)
}
